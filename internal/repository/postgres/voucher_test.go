package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/database"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

func newVoucherRepo(t *testing.T) (*VoucherRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewVoucherRepository(mock), mock
}

func TestVoucherRepository_GetByCode(t *testing.T) {
	repo, mock := newVoucherRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC().Truncate(time.Microsecond)
	maxDiscount := int64(50000)
	usageLimit := 100

	rows := pgxmock.NewRows([]string{
		"id", "code", "description", "discount_type", "discount_value",
		"max_discount", "min_purchase", "valid_from", "valid_until",
		"usage_limit", "usage_count", "per_user_limit", "is_active",
		"created_at", "updated_at",
	}).AddRow(
		"voucher-001", "SAVE10", "10% off", domain.DiscountTypePercentage, int64(10),
		&maxDiscount, int64(0), now.Add(-time.Hour), now.Add(time.Hour),
		&usageLimit, 3, nil, true, now, now,
	)

	mock.ExpectQuery("FROM vouchers").
		WithArgs("SAVE10").
		WillReturnRows(rows)

	v, err := repo.GetByCode(context.Background(), "SAVE10")
	require.NoError(t, err)

	assert.Equal(t, "SAVE10", v.Code)
	assert.Equal(t, domain.DiscountTypePercentage, v.DiscountType)
	require.NotNil(t, v.MaxDiscount)
	assert.Equal(t, int64(50000), *v.MaxDiscount)
	require.NotNil(t, v.UsageLimit)
	assert.Equal(t, 100, *v.UsageLimit)
	assert.Nil(t, v.PerUserLimit)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoucherRepository_GetByCode_NotFound(t *testing.T) {
	repo, mock := newVoucherRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("FROM vouchers").
		WithArgs("NOPE").
		WillReturnError(pgx.ErrNoRows)

	v, err := repo.GetByCode(context.Background(), "NOPE")
	assert.Nil(t, v)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoucherRepository_CountUsagesByUser(t *testing.T) {
	repo, mock := newVoucherRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("FROM voucher_usages").
		WithArgs("voucher-001", "user-001").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountUsagesByUser(context.Background(), "voucher-001", "user-001")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}
