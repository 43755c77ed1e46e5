package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

func newCartService(carts *mockCartRepo, variants *mockVariantRepo, vouchers *mockVoucherRepo) *CartService {
	return NewCartService(carts, variants, vouchers, newTestLogger())
}

func sampleCart(userID string) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:     "cart-001",
		UserID: userID,
		Items: []domain.CartItem{
			{
				ID:          "item-001",
				VariantID:   "var-001",
				SKU:         "HJB-SAT-RED",
				Name:        "Satin Hijab Red",
				Price:       50000,
				WeightGrams: 200,
				Stock:       10,
				Quantity:    2,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestAddItem_Success(t *testing.T) {
	carts := new(mockCartRepo)
	variants := new(mockVariantRepo)
	svc := newCartService(carts, variants, new(mockVoucherRepo))
	ctx := context.Background()

	cart := sampleCart("user-001")
	variants.On("GetByID", ctx, "var-002").Return(&domain.Variant{
		ID: "var-002", SKU: "HJB-CHF-BLK", Stock: 5, IsActive: true,
	}, nil)
	carts.On("GetByUserID", ctx, "user-001").Return(cart, nil)
	carts.On("UpsertItem", ctx, "cart-001", "var-002", 3).Return(nil)

	got, err := svc.AddItem(ctx, "user-001", "", "var-002", 3)

	require.NoError(t, err)
	assert.Equal(t, "cart-001", got.ID)
	carts.AssertExpectations(t)
}

func TestAddItem_InsufficientStock(t *testing.T) {
	carts := new(mockCartRepo)
	variants := new(mockVariantRepo)
	svc := newCartService(carts, variants, new(mockVoucherRepo))
	ctx := context.Background()

	// Cart already holds 2; stock 3 cannot cover 2+2.
	variants.On("GetByID", ctx, "var-001").Return(&domain.Variant{
		ID: "var-001", SKU: "HJB-SAT-RED", Stock: 3, IsActive: true,
	}, nil)
	carts.On("GetByUserID", ctx, "user-001").Return(sampleCart("user-001"), nil)

	_, err := svc.AddItem(ctx, "user-001", "", "var-001", 2)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
	assert.Contains(t, appErr.Message, "HJB-SAT-RED")
	carts.AssertNotCalled(t, "UpsertItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddItem_InactiveVariant(t *testing.T) {
	variants := new(mockVariantRepo)
	svc := newCartService(new(mockCartRepo), variants, new(mockVoucherRepo))
	ctx := context.Background()

	variants.On("GetByID", ctx, "var-003").Return(&domain.Variant{
		ID: "var-003", SKU: "HJB-PSH-NVY", Stock: 10, IsActive: false,
	}, nil)

	_, err := svc.AddItem(ctx, "user-001", "", "var-003", 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAddItem_CreatesCartWhenMissing(t *testing.T) {
	carts := new(mockCartRepo)
	variants := new(mockVariantRepo)
	svc := newCartService(carts, variants, new(mockVoucherRepo))
	ctx := context.Background()

	variants.On("GetByID", ctx, "var-001").Return(&domain.Variant{
		ID: "var-001", SKU: "HJB-SAT-RED", Stock: 10, IsActive: true,
	}, nil)
	carts.On("GetBySessionID", ctx, "sess-abc").Return(nil, apperrors.ErrNotFound).Once()
	carts.On("Create", ctx, mock.AnythingOfType("*domain.Cart")).Run(func(args mock.Arguments) {
		cart := args.Get(1).(*domain.Cart)
		assert.Equal(t, "sess-abc", cart.SessionID)
		assert.Empty(t, cart.UserID)
		require.NotNil(t, cart.ExpiresAt)
	}).Return(nil)
	carts.On("UpsertItem", ctx, mock.AnythingOfType("string"), "var-001", 1).Return(nil)
	carts.On("GetBySessionID", ctx, "sess-abc").Return(sampleCart(""), nil)

	_, err := svc.AddItem(ctx, "", "sess-abc", "var-001", 1)
	require.NoError(t, err)
	carts.AssertExpectations(t)
}

func TestUpdateItemQuantity_ZeroRemoves(t *testing.T) {
	carts := new(mockCartRepo)
	svc := newCartService(carts, new(mockVariantRepo), new(mockVoucherRepo))
	ctx := context.Background()

	carts.On("GetByUserID", ctx, "user-001").Return(sampleCart("user-001"), nil)
	carts.On("RemoveItem", ctx, "cart-001", "item-001").Return(nil)

	_, err := svc.UpdateItemQuantity(ctx, "user-001", "", "item-001", 0)
	require.NoError(t, err)
	carts.AssertExpectations(t)
}

func TestUpdateItemQuantity_ExceedsStock(t *testing.T) {
	carts := new(mockCartRepo)
	svc := newCartService(carts, new(mockVariantRepo), new(mockVoucherRepo))
	ctx := context.Background()

	carts.On("GetByUserID", ctx, "user-001").Return(sampleCart("user-001"), nil)

	_, err := svc.UpdateItemQuantity(ctx, "user-001", "", "item-001", 11)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
}

func TestApplyVoucher_Success(t *testing.T) {
	carts := new(mockCartRepo)
	vouchers := new(mockVoucherRepo)
	svc := newCartService(carts, new(mockVariantRepo), vouchers)
	ctx := context.Background()

	now := time.Now().UTC()
	voucher := &domain.Voucher{
		ID:            "vch-001",
		Code:          "SAVE10",
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: 10,
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		IsActive:      true,
	}

	cart := sampleCart("user-001")
	carts.On("GetByUserID", ctx, "user-001").Return(cart, nil)
	vouchers.On("GetByCode", ctx, "SAVE10").Return(voucher, nil)
	vouchers.On("CountUsagesByUser", ctx, "vch-001", "user-001").Return(0, nil)
	carts.On("SetVoucher", ctx, "cart-001", &voucher.ID).Return(nil)

	_, err := svc.ApplyVoucher(ctx, "user-001", "SAVE10")
	require.NoError(t, err)
	carts.AssertExpectations(t)
}

func TestApplyVoucher_BelowMinPurchase(t *testing.T) {
	carts := new(mockCartRepo)
	vouchers := new(mockVoucherRepo)
	svc := newCartService(carts, new(mockVariantRepo), vouchers)
	ctx := context.Background()

	now := time.Now().UTC()
	voucher := &domain.Voucher{
		ID:            "vch-001",
		Code:          "SAVE10",
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: 10,
		MinPurchase:   500000,
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		IsActive:      true,
	}

	carts.On("GetByUserID", ctx, "user-001").Return(sampleCart("user-001"), nil)
	vouchers.On("GetByCode", ctx, "SAVE10").Return(voucher, nil)
	vouchers.On("CountUsagesByUser", ctx, "vch-001", "user-001").Return(0, nil)

	_, err := svc.ApplyVoucher(ctx, "user-001", "SAVE10")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Message, "minimum purchase")
	carts.AssertNotCalled(t, "SetVoucher", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyVoucher_RequiresAuth(t *testing.T) {
	svc := newCartService(new(mockCartRepo), new(mockVariantRepo), new(mockVoucherRepo))

	_, err := svc.ApplyVoucher(context.Background(), "", "SAVE10")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestMergeGuestCart_DropsLineThatWouldOversell(t *testing.T) {
	carts := new(mockCartRepo)
	svc := newCartService(carts, new(mockVariantRepo), new(mockVoucherRepo))
	ctx := context.Background()

	// The user already holds 2 of var-001 and only 4 are in stock, so the
	// guest's 3 cannot be combined. That line is dropped and the user's line
	// stays at 2; the var-002 line merges normally.
	guest := &domain.Cart{
		ID:        "cart-guest",
		SessionID: "sess-abc",
		Items: []domain.CartItem{
			{ID: "item-g1", VariantID: "var-001", SKU: "HJB-SAT-RED", Stock: 4, Quantity: 3},
			{ID: "item-g2", VariantID: "var-002", SKU: "HJB-CHF-BLK", Stock: 200, Quantity: 1},
		},
	}
	userCart := sampleCart("user-001")

	carts.On("GetBySessionID", ctx, "sess-abc").Return(guest, nil)
	carts.On("GetByUserID", ctx, "user-001").Return(userCart, nil)
	carts.On("MergeGuestIntoUser", ctx, "cart-guest", "cart-001", map[string]int{
		"var-002": 1,
	}).Return(nil)

	_, err := svc.MergeGuestCart(ctx, "user-001", "sess-abc")
	require.NoError(t, err)
	carts.AssertExpectations(t)
}

func TestMergeGuestCart_CombinesLinesWithinStock(t *testing.T) {
	carts := new(mockCartRepo)
	svc := newCartService(carts, new(mockVariantRepo), new(mockVoucherRepo))
	ctx := context.Background()

	guest := &domain.Cart{
		ID:        "cart-guest",
		SessionID: "sess-abc",
		Items: []domain.CartItem{
			{ID: "item-g1", VariantID: "var-001", SKU: "HJB-SAT-RED", Stock: 10, Quantity: 3},
		},
	}
	userCart := sampleCart("user-001")

	carts.On("GetBySessionID", ctx, "sess-abc").Return(guest, nil)
	carts.On("GetByUserID", ctx, "user-001").Return(userCart, nil)
	carts.On("MergeGuestIntoUser", ctx, "cart-guest", "cart-001", map[string]int{
		"var-001": 5,
	}).Return(nil)

	_, err := svc.MergeGuestCart(ctx, "user-001", "sess-abc")
	require.NoError(t, err)
	carts.AssertExpectations(t)
}

func TestMergeGuestCart_NoGuestCart(t *testing.T) {
	carts := new(mockCartRepo)
	svc := newCartService(carts, new(mockVariantRepo), new(mockVoucherRepo))
	ctx := context.Background()

	carts.On("GetBySessionID", ctx, "sess-abc").Return(nil, apperrors.ErrNotFound)
	carts.On("GetByUserID", ctx, "user-001").Return(sampleCart("user-001"), nil)

	got, err := svc.MergeGuestCart(ctx, "user-001", "sess-abc")
	require.NoError(t, err)
	assert.Equal(t, "cart-001", got.ID)
	carts.AssertNotCalled(t, "MergeGuestIntoUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetCart_ExpiredGuestCartReplaced(t *testing.T) {
	carts := new(mockCartRepo)
	svc := newCartService(carts, new(mockVariantRepo), new(mockVoucherRepo))
	ctx := context.Background()

	expired := time.Now().UTC().Add(-time.Hour)
	stale := &domain.Cart{
		ID:        "cart-old",
		SessionID: "sess-abc",
		Items:     []domain.CartItem{{ID: "item-x", VariantID: "var-001", Quantity: 1}},
		ExpiresAt: &expired,
	}

	carts.On("GetBySessionID", ctx, "sess-abc").Return(stale, nil)
	carts.On("Delete", ctx, "cart-old").Return(nil)
	carts.On("Create", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	got, err := svc.GetCart(ctx, "", "sess-abc")
	require.NoError(t, err)
	assert.NotEqual(t, "cart-old", got.ID)
	assert.Empty(t, got.Items)
	carts.AssertExpectations(t)
}

func TestUpdateItemQuantity_ExpiredGuestCartPurged(t *testing.T) {
	carts := new(mockCartRepo)
	svc := newCartService(carts, new(mockVariantRepo), new(mockVoucherRepo))
	ctx := context.Background()

	expired := time.Now().UTC().Add(-time.Hour)
	stale := &domain.Cart{
		ID:        "cart-old",
		SessionID: "sess-abc",
		Items:     []domain.CartItem{{ID: "item-x", VariantID: "var-001", Stock: 10, Quantity: 1}},
		ExpiresAt: &expired,
	}

	carts.On("GetBySessionID", ctx, "sess-abc").Return(stale, nil)
	carts.On("Delete", ctx, "cart-old").Return(nil)

	_, err := svc.UpdateItemQuantity(ctx, "", "sess-abc", "item-x", 2)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	carts.AssertNotCalled(t, "SetItemQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	carts.AssertExpectations(t)
}

func TestCartTotals_VoucherDiscountReducesTotal(t *testing.T) {
	cart := sampleCart("user-001")
	cart.Voucher = &domain.Voucher{
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: 30000,
		IsActive:      true,
	}

	totals := cart.Totals()
	assert.Equal(t, int64(100000), totals.Subtotal)
	assert.Equal(t, int64(30000), totals.DiscountAmount)
	assert.Equal(t, totals.Subtotal-totals.DiscountAmount, totals.Total)
}
