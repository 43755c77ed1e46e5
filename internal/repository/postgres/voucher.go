package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/database"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

// VoucherRepository implements repository.VoucherRepository using PostgreSQL.
type VoucherRepository struct {
	pool database.DBTX
}

// NewVoucherRepository creates a new PostgreSQL-backed voucher repository.
func NewVoucherRepository(pool database.DBTX) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

const voucherColumns = `id, code, description, discount_type, discount_value, max_discount,
	min_purchase, valid_from, valid_until, usage_limit, usage_count, per_user_limit,
	is_active, created_at, updated_at`

func scanVoucher(row pgx.Row) (*domain.Voucher, error) {
	var v domain.Voucher
	err := row.Scan(
		&v.ID,
		&v.Code,
		&v.Description,
		&v.DiscountType,
		&v.DiscountValue,
		&v.MaxDiscount,
		&v.MinPurchase,
		&v.ValidFrom,
		&v.ValidUntil,
		&v.UsageLimit,
		&v.UsageCount,
		&v.PerUserLimit,
		&v.IsActive,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan voucher: %w", err)
	}
	return &v, nil
}

// GetByCode retrieves a voucher by its code.
func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1`
	return scanVoucher(r.pool.QueryRow(ctx, query, code))
}

// GetByID retrieves a voucher by ID.
func (r *VoucherRepository) GetByID(ctx context.Context, id string) (*domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`
	return scanVoucher(r.pool.QueryRow(ctx, query, id))
}

// CountUsagesByUser returns how many times a user has redeemed a voucher.
func (r *VoucherRepository) CountUsagesByUser(ctx context.Context, voucherID, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM voucher_usages WHERE voucher_id = $1 AND user_id = $2`,
		voucherID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count voucher usages: %w", err)
	}
	return count, nil
}
