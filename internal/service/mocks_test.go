package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/event"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository"
	pkgkafka "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/kafka"
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
		return nil, 0, args.Error(2)
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

// stubRateProvider returns fixed quotes or a fixed error.
type stubRateProvider struct {
	quotes []domain.RateQuote
	err    error
}

func (s *stubRateProvider) Quote(_ context.Context, _, _ string, _ int) ([]domain.RateQuote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.quotes, nil
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer builds an event producer over a broker-less Kafka producer;
// publishes fail and are swallowed by the services' fire-and-forget logging.
func newTestProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}
