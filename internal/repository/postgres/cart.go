package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/database"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	pool database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool database.DBTX) *CartRepository {
	return &CartRepository{pool: pool}
}

const cartQuery = `
	SELECT
		c.id, COALESCE(c.user_id::text, ''), COALESCE(c.session_id, ''),
		c.expires_at, c.created_at, c.updated_at,
		v.id, v.code, v.description, v.discount_type, v.discount_value,
		v.max_discount, v.min_purchase, v.valid_from, v.valid_until,
		v.usage_limit, v.usage_count, v.per_user_limit, v.is_active,
		v.created_at, v.updated_at
	FROM carts c
	LEFT JOIN vouchers v ON v.id = c.voucher_id`

// scanCart scans a cart row with its optional voucher columns.
func (r *CartRepository) scanCart(row pgx.Row) (*domain.Cart, error) {
	var (
		c domain.Cart
		v domain.Voucher

		voucherID             *string
		voucherCode           *string
		voucherDesc           *string
		discountType          *string
		discountValue         *int64
		minPurchase           *int64
		validFrom, validUntil *time.Time
		usageCount            *int
		isActive              *bool
		createdAt, updatedAt  *time.Time
	)

	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.SessionID,
		&c.ExpiresAt,
		&c.CreatedAt,
		&c.UpdatedAt,
		&voucherID,
		&voucherCode,
		&voucherDesc,
		&discountType,
		&discountValue,
		&v.MaxDiscount,
		&minPurchase,
		&validFrom,
		&validUntil,
		&v.UsageLimit,
		&usageCount,
		&v.PerUserLimit,
		&isActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan cart: %w", err)
	}

	if voucherID != nil {
		v.ID = *voucherID
		v.Code = *voucherCode
		v.Description = *voucherDesc
		v.DiscountType = *discountType
		v.DiscountValue = *discountValue
		v.MinPurchase = *minPurchase
		v.ValidFrom = *validFrom
		v.ValidUntil = *validUntil
		v.UsageCount = *usageCount
		v.IsActive = *isActive
		v.CreatedAt = *createdAt
		v.UpdatedAt = *updatedAt
		c.Voucher = &v
	}

	return &c, nil
}

// loadItems populates the cart lines joined against the current variant rows.
func (r *CartRepository) loadItems(ctx context.Context, c *domain.Cart) error {
	query := `
		SELECT ci.id, ci.variant_id, pv.sku, pv.name, pv.price, pv.weight_grams,
			pv.stock, ci.quantity, ci.created_at, ci.updated_at
		FROM cart_items ci
		JOIN product_variants pv ON pv.id = ci.variant_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at`

	rows, err := r.pool.Query(ctx, query, c.ID)
	if err != nil {
		return fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	c.Items = make([]domain.CartItem, 0)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.VariantID,
			&item.SKU,
			&item.Name,
			&item.Price,
			&item.WeightGrams,
			&item.Stock,
			&item.Quantity,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return fmt.Errorf("scan cart item: %w", err)
		}
		c.Items = append(c.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate cart items: %w", err)
	}

	return nil
}

// GetByUserID loads the cart owned by a user.
func (r *CartRepository) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	c, err := r.scanCart(r.pool.QueryRow(ctx, cartQuery+` WHERE c.user_id = $1`, userID))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetBySessionID loads a guest cart by session key.
func (r *CartRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Cart, error) {
	c, err := r.scanCart(r.pool.QueryRow(ctx, cartQuery+` WHERE c.session_id = $1`, sessionID))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts an empty cart. Exactly one of UserID or SessionID must be set.
func (r *CartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	query := `
		INSERT INTO carts (user_id, session_id, expires_at)
		VALUES (NULLIF($1, '')::uuid, NULLIF($2, ''), $3)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, cart.UserID, cart.SessionID, cart.ExpiresAt).
		Scan(&cart.ID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	cart.Items = []domain.CartItem{}
	return nil
}

// UpsertItem adds quantity to an existing line or inserts a new one.
func (r *CartRepository) UpsertItem(ctx context.Context, cartID, variantID string, quantity int) error {
	query := `
		INSERT INTO cart_items (cart_id, variant_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()`

	if _, err := r.pool.Exec(ctx, query, cartID, variantID, quantity); err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return r.touch(ctx, cartID)
}

// SetItemQuantity replaces the quantity of a line.
func (r *CartRepository) SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	query := `UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2 AND cart_id = $3`

	tag, err := r.pool.Exec(ctx, query, quantity, itemID, cartID)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return r.touch(ctx, cartID)
}

// RemoveItem deletes a line.
func (r *CartRepository) RemoveItem(ctx context.Context, cartID, itemID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return r.touch(ctx, cartID)
}

// Clear removes all lines and any applied voucher.
func (r *CartRepository) Clear(ctx context.Context, cartID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE carts SET voucher_id = NULL, updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart voucher: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SetVoucher applies or removes (nil) the cart voucher.
func (r *CartRepository) SetVoucher(ctx context.Context, cartID string, voucherID *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE carts SET voucher_id = $1, updated_at = NOW() WHERE id = $2`, voucherID, cartID)
	if err != nil {
		return fmt.Errorf("set cart voucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MergeGuestIntoUser writes the already-merged line quantities onto the user
// cart and deletes the guest cart in a single transaction. lines maps variant
// id to the final quantity the user cart must hold; variants absent from the
// map keep their current row.
func (r *CartRepository) MergeGuestIntoUser(ctx context.Context, guestCartID, userCartID string, lines map[string]int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	upsertQuery := `
		INSERT INTO cart_items (cart_id, variant_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, variant_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()`

	variantIDs := make([]string, 0, len(lines))
	for variantID := range lines {
		variantIDs = append(variantIDs, variantID)
	}
	sort.Strings(variantIDs)

	for _, variantID := range variantIDs {
		if _, err := tx.Exec(ctx, upsertQuery, userCartID, variantID, lines[variantID]); err != nil {
			return fmt.Errorf("upsert merged cart line: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, guestCartID); err != nil {
		return fmt.Errorf("delete guest cart: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, userCartID); err != nil {
		return fmt.Errorf("touch user cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete removes a cart; lines cascade.
func (r *CartRepository) Delete(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

func (r *CartRepository) touch(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}
