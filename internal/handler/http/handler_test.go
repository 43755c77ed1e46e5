package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/event"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/provider/payment"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/provider/shipping"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/service"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/health"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/httputil"
	pkgkafka "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/kafka"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/middleware"
)

// Gateway credentials shared by the webhook signing helpers.
const (
	testClientID = "client-test"
	testSecret   = "secret-test"
)

// --- Repository mocks ---

type mockCartRepo struct {
	mock.Mock
}

func (m *mockCartRepo) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepo) GetBySessionID(ctx context.Context, sessionID string) (*domain.Cart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepo) Create(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepo) UpsertItem(ctx context.Context, cartID, variantID string, quantity int) error {
	args := m.Called(ctx, cartID, variantID, quantity)
	return args.Error(0)
}

func (m *mockCartRepo) SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	args := m.Called(ctx, cartID, itemID, quantity)
	return args.Error(0)
}

func (m *mockCartRepo) RemoveItem(ctx context.Context, cartID, itemID string) error {
	args := m.Called(ctx, cartID, itemID)
	return args.Error(0)
}

func (m *mockCartRepo) Clear(ctx context.Context, cartID string) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

func (m *mockCartRepo) SetVoucher(ctx context.Context, cartID string, voucherID *string) error {
	args := m.Called(ctx, cartID, voucherID)
	return args.Error(0)
}

func (m *mockCartRepo) MergeGuestIntoUser(ctx context.Context, guestCartID, userCartID string, lines map[string]int) error {
	args := m.Called(ctx, guestCartID, userCartID, lines)
	return args.Error(0)
}

func (m *mockCartRepo) Delete(ctx context.Context, cartID string) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

type mockVariantRepo struct {
	mock.Mock
}

func (m *mockVariantRepo) GetByID(ctx context.Context, id string) (*domain.Variant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *mockVariantRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Variant, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*domain.Variant), args.Error(1)
}

func (m *mockVariantRepo) UpsertFromERP(ctx context.Context, variants []domain.Variant) (int, error) {
	args := m.Called(ctx, variants)
	return args.Int(0), args.Error(1)
}

type mockVoucherRepo struct {
	mock.Mock
}

func (m *mockVoucherRepo) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Voucher), args.Error(1)
}

func (m *mockVoucherRepo) GetByID(ctx context.Context, id string) (*domain.Voucher, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Voucher), args.Error(1)
}

func (m *mockVoucherRepo) CountUsagesByUser(ctx context.Context, voucherID, userID string) (int, error) {
	args := m.Called(ctx, voucherID, userID)
	return args.Int(0), args.Error(1)
}

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, params repository.CreateOrderParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *mockOrderRepo) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, order *domain.Order, fromStatus string, restoreStock bool) ([]string, error) {
	args := m.Called(ctx, order, fromStatus, restoreStock)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPaymentRepo) GetSuccessByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *mockPaymentRepo) ListByOrderID(ctx context.Context, orderID string) ([]domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

func (m *mockPaymentRepo) ApplyReconciliation(ctx context.Context, upd repository.ReconciliationUpdate) error {
	args := m.Called(ctx, upd)
	return args.Error(0)
}

type mockAddressRepo struct {
	mock.Mock
}

func (m *mockAddressRepo) GetByID(ctx context.Context, id, userID string) (*domain.Address, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

type mockSyncLogRepo struct {
	mock.Mock
}

func (m *mockSyncLogRepo) Insert(ctx context.Context, l *domain.SyncLog) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *mockSyncLogRepo) List(ctx context.Context, page, perPage int) ([]domain.SyncLog, int, error) {
	args := m.Called(ctx, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.SyncLog), args.Int(1), args.Error(2)
}

type mockRateCache struct {
	mock.Mock
}

func (m *mockRateCache) Get(ctx context.Context, origin, city string, kg int) ([]domain.RateQuote, bool, error) {
	args := m.Called(ctx, origin, city, kg)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.RateQuote), args.Bool(1), args.Error(2)
}

func (m *mockRateCache) Set(ctx context.Context, origin, city string, kg int, quotes []domain.RateQuote) error {
	args := m.Called(ctx, origin, city, kg, quotes)
	return args.Error(0)
}

// --- Test helpers ---

type fixture struct {
	carts     *mockCartRepo
	variants  *mockVariantRepo
	vouchers  *mockVoucherRepo
	orders    *mockOrderRepo
	payments  *mockPaymentRepo
	addresses *mockAddressRepo
	syncLogs  *mockSyncLogRepo
	cache     *mockRateCache
	router    http.Handler
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

// testTokenValidator accepts two fixed tokens: "customer-token" resolves to
// user-001 and "admin-token" to an admin identity.
func testTokenValidator(token string) (*middleware.Claims, error) {
	switch token {
	case "customer-token":
		return &middleware.Claims{UserID: "user-001", Role: "customer"}, nil
	case "admin-token":
		return &middleware.Claims{UserID: "admin-001", Role: "admin"}, nil
	}
	return nil, errors.New("unknown token")
}

// newFixture wires the full production router on top of repository mocks, the
// mock shipping provider, and the mock payment gateway.
func newFixture() *fixture {
	f := &fixture{
		carts:     new(mockCartRepo),
		variants:  new(mockVariantRepo),
		vouchers:  new(mockVoucherRepo),
		orders:    new(mockOrderRepo),
		payments:  new(mockPaymentRepo),
		addresses: new(mockAddressRepo),
		syncLogs:  new(mockSyncLogRepo),
		cache:     new(mockRateCache),
	}

	logger := testLogger()
	producer := testEventProducer()

	cartSvc := service.NewCartService(f.carts, f.variants, f.vouchers, logger)
	shippingSvc := service.NewShippingService(f.addresses, f.carts, f.cache, shipping.NewMock(), "Jakarta", logger)
	orderSvc := service.NewOrderService(f.orders, f.carts, f.variants, f.vouchers, f.addresses, shippingSvc, producer, logger)
	paymentSvc := service.NewPaymentService(f.orders, f.payments, payment.NewMock(testClientID, testSecret), producer, logger)
	syncSvc := service.NewSyncService(f.syncLogs)

	f.router = NewRouter(cartSvc, shippingSvc, orderSvc, paymentSvc, syncSvc, health.NewHandler(), RouterConfig{
		TokenValidator: testTokenValidator,
		CORS:           middleware.DefaultCORSConfig(),
	}, logger)

	return f
}

// decodeResponse reads the response body into the httputil.Response envelope.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// jsonDecode reads the response body into an arbitrary struct, for endpoints
// that answer with a paginated payload instead of the envelope.
func jsonDecode(rec *httptest.ResponseRecorder, v any) error {
	return json.NewDecoder(rec.Body).Decode(v)
}

// sampleCart returns a user cart with one line: 2 x 50,000 with stock to spare.
func sampleCart() *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:     "cart-001",
		UserID: "user-001",
		Items: []domain.CartItem{
			{
				ID:          "item-001",
				VariantID:   "var-001",
				SKU:         "HJB-SAT-RED",
				Name:        "Hijab Satin Red",
				Price:       50000,
				WeightGrams: 700,
				Stock:       10,
				Quantity:    2,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// sampleOrder returns an order still awaiting payment.
func sampleOrder() *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:            "order-001",
		OrderNumber:   "ORD-20260828-AB2CD3",
		UserID:        "user-001",
		Status:        domain.OrderStatusPendingPayment,
		PaymentStatus: domain.PaymentStatusPending,
		Items: []domain.OrderItem{
			{
				ID:        "oitem-001",
				VariantID: "var-001",
				SKU:       "HJB-SAT-RED",
				Name:      "Hijab Satin Red",
				Price:     50000,
				Quantity:  2,
				Subtotal:  100000,
			},
		},
		Subtotal:       100000,
		DiscountAmount: 10000,
		ShippingCost:   15000,
		TotalAmount:    105000,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
