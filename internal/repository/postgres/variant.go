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

// VariantRepository implements repository.VariantRepository using PostgreSQL.
type VariantRepository struct {
	pool database.DBTX
}

// NewVariantRepository creates a new PostgreSQL-backed variant repository.
func NewVariantRepository(pool database.DBTX) *VariantRepository {
	return &VariantRepository{pool: pool}
}

const variantColumns = `id, COALESCE(erp_id, ''), sku, name, price, weight_grams, stock, is_active, created_at, updated_at`

func scanVariant(row pgx.Row) (*domain.Variant, error) {
	var v domain.Variant
	err := row.Scan(
		&v.ID,
		&v.ERPID,
		&v.SKU,
		&v.Name,
		&v.Price,
		&v.WeightGrams,
		&v.Stock,
		&v.IsActive,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan variant: %w", err)
	}
	return &v, nil
}

// GetByID retrieves a variant by its unique identifier.
func (r *VariantRepository) GetByID(ctx context.Context, id string) (*domain.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE id = $1`
	return scanVariant(r.pool.QueryRow(ctx, query, id))
}

// GetByIDs retrieves multiple variants keyed by ID. Missing IDs are simply
// absent from the result map.
func (r *VariantRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*domain.Variant, len(ids))
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		result[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}

	return result, nil
}

// UpsertFromERP applies an ERP stock snapshot keyed by SKU, last write wins.
func (r *VariantRepository) UpsertFromERP(ctx context.Context, variants []domain.Variant) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO product_variants (erp_id, sku, name, price, weight_grams, stock, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (sku) DO UPDATE SET
			erp_id = EXCLUDED.erp_id,
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			weight_grams = EXCLUDED.weight_grams,
			stock = EXCLUDED.stock,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()`

	written := 0
	for i := range variants {
		v := &variants[i]
		if _, err := tx.Exec(ctx, query,
			v.ERPID,
			v.SKU,
			v.Name,
			v.Price,
			v.WeightGrams,
			v.Stock,
			v.IsActive,
		); err != nil {
			return 0, fmt.Errorf("upsert variant %s: %w", v.SKU, err)
		}
		written++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return written, nil
}
