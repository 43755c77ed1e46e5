package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/database"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

func newCartRepo(t *testing.T) (*CartRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewCartRepository(mock), mock
}

func cartRowColumns() []string {
	return []string{
		"id", "user_id", "session_id", "expires_at", "created_at", "updated_at",
		"v_id", "v_code", "v_description", "v_discount_type", "v_discount_value",
		"v_max_discount", "v_min_purchase", "v_valid_from", "v_valid_until",
		"v_usage_limit", "v_usage_count", "v_per_user_limit", "v_is_active",
		"v_created_at", "v_updated_at",
	}
}

func TestCartRepository_GetByUserID_WithVoucher(t *testing.T) {
	repo, mock := newCartRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC().Truncate(time.Microsecond)
	validFrom := now.Add(-time.Hour)
	validUntil := now.Add(time.Hour)
	code := "SAVE10"
	desc := "10% off"
	dtype := domain.DiscountTypePercentage
	dvalue := int64(10)
	maxDiscount := int64(50000)
	minPurchase := int64(0)
	usageCount := 3
	active := true
	voucherID := "voucher-001"

	rows := pgxmock.NewRows(cartRowColumns()).AddRow(
		"cart-001", "user-001", "", nil, now, now,
		&voucherID, &code, &desc, &dtype, &dvalue,
		&maxDiscount, &minPurchase, &validFrom, &validUntil,
		nil, &usageCount, nil, &active, &now, &now,
	)

	mock.ExpectQuery("FROM carts c").
		WithArgs("user-001").
		WillReturnRows(rows)

	itemRows := pgxmock.NewRows([]string{
		"id", "variant_id", "sku", "name", "price", "weight_grams",
		"stock", "quantity", "created_at", "updated_at",
	}).AddRow("item-001", "var-001", "HJB-SAT-RED", "Satin Hijab Red",
		int64(50000), 200, 10, 2, now, now)

	mock.ExpectQuery("FROM cart_items ci").
		WithArgs("cart-001").
		WillReturnRows(itemRows)

	cart, err := repo.GetByUserID(context.Background(), "user-001")
	require.NoError(t, err)
	require.NotNil(t, cart)

	assert.Equal(t, "cart-001", cart.ID)
	assert.Equal(t, "user-001", cart.UserID)
	assert.Empty(t, cart.SessionID)

	require.NotNil(t, cart.Voucher)
	assert.Equal(t, "SAVE10", cart.Voucher.Code)
	require.NotNil(t, cart.Voucher.MaxDiscount)
	assert.Equal(t, int64(50000), *cart.Voucher.MaxDiscount)
	assert.Nil(t, cart.Voucher.UsageLimit)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, "HJB-SAT-RED", cart.Items[0].SKU)
	assert.Equal(t, int64(100000), cart.Items[0].Subtotal())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_GetBySessionID_NoVoucher(t *testing.T) {
	repo, mock := newCartRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC().Truncate(time.Microsecond)
	expires := now.Add(domain.GuestCartTTL)

	rows := pgxmock.NewRows(cartRowColumns()).AddRow(
		"cart-002", "", "sess-abc", &expires, now, now,
		nil, nil, nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil, nil, nil, nil, nil,
	)

	mock.ExpectQuery("FROM carts c").
		WithArgs("sess-abc").
		WillReturnRows(rows)

	mock.ExpectQuery("FROM cart_items ci").
		WithArgs("cart-002").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "variant_id", "sku", "name", "price", "weight_grams",
			"stock", "quantity", "created_at", "updated_at",
		}))

	cart, err := repo.GetBySessionID(context.Background(), "sess-abc")
	require.NoError(t, err)

	assert.Equal(t, "sess-abc", cart.SessionID)
	assert.Nil(t, cart.Voucher)
	assert.Empty(t, cart.Items)
	assert.NotNil(t, cart.Items)
	require.NotNil(t, cart.ExpiresAt)
	assert.True(t, cart.ExpiresAt.After(now))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_GetByUserID_NotFound(t *testing.T) {
	repo, mock := newCartRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("FROM carts c").
		WithArgs("user-none").
		WillReturnRows(pgxmock.NewRows(cartRowColumns()))

	cart, err := repo.GetByUserID(context.Background(), "user-none")
	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_UpsertItem(t *testing.T) {
	repo, mock := newCartRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectExec("INSERT INTO cart_items").
		WithArgs("cart-001", "var-001", 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE carts").
		WithArgs("cart-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpsertItem(context.Background(), "cart-001", "var-001", 3)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_SetItemQuantity_NotFound(t *testing.T) {
	repo, mock := newCartRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectExec("UPDATE cart_items").
		WithArgs(5, "item-missing", "cart-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetItemQuantity(context.Background(), "cart-001", "item-missing", 5)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Clear(t *testing.T) {
	repo, mock := newCartRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs("cart-001").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("UPDATE carts").
		WithArgs("cart-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.Clear(context.Background(), "cart-001")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_MergeGuestIntoUser(t *testing.T) {
	repo, mock := newCartRepo(t)
	defer mock.ExpectationsWereMet()

	// Lines are upserted in variant id order so the expectations are stable.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cart_items").
		WithArgs("cart-user", "var-001", 5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO cart_items").
		WithArgs("cart-user", "var-002", 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM carts").
		WithArgs("cart-guest").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("UPDATE carts").
		WithArgs("cart-user").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.MergeGuestIntoUser(context.Background(), "cart-guest", "cart-user",
		map[string]int{"var-001": 5, "var-002": 1})
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_SetVoucher(t *testing.T) {
	repo, mock := newCartRepo(t)
	defer mock.ExpectationsWereMet()

	voucherID := "voucher-001"
	mock.ExpectExec("UPDATE carts").
		WithArgs(&voucherID, "cart-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.SetVoucher(context.Background(), "cart-001", &voucherID)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
