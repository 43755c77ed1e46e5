package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/database"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL. It
// owns the two stock-mutating transactions: order creation decrements the
// ledger, cancellation and refund restore it.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// decrementStockQuery only succeeds when enough stock remains; zero rows
// affected means another order got there first.
const decrementStockQuery = `UPDATE product_variants SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1`

// CreateOrder runs the order-creation transaction. Stock is decremented with a
// conditional update per line, so two concurrent checkouts for the last unit
// cannot both succeed; the loser rolls back with InsufficientStock.
func (r *OrderRepository) CreateOrder(ctx context.Context, params repository.CreateOrderParams) error {
	o := params.Order

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range o.Items {
		item := &o.Items[i]
		tag, err := tx.Exec(ctx, decrementStockQuery, item.Quantity, item.VariantID)
		if err != nil {
			return fmt.Errorf("decrement stock for %s: %w", item.SKU, err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.InsufficientStock(item.SKU)
		}
	}

	orderQuery := `
		INSERT INTO orders (order_number, user_id, status, payment_status,
			subtotal, discount_amount, shipping_cost, total_amount,
			voucher_id, voucher_code, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')::uuid, $10, $11)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, orderQuery,
		o.OrderNumber,
		o.UserID,
		o.Status,
		o.PaymentStatus,
		o.Subtotal,
		o.DiscountAmount,
		o.ShippingCost,
		o.TotalAmount,
		o.VoucherID,
		o.VoucherCode,
		o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, variant_id, sku, name, price, weight_grams, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	for i := range o.Items {
		item := &o.Items[i]
		err := tx.QueryRow(ctx, itemQuery,
			o.ID,
			item.VariantID,
			item.SKU,
			item.Name,
			item.Price,
			item.WeightGrams,
			item.Quantity,
			item.Subtotal,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", item.SKU, err)
		}
	}

	if o.Shipping != nil {
		shippingQuery := `
			INSERT INTO order_shippings (order_id, courier, service, cost, etd,
				recipient_name, phone, street, city, province, postal_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id`

		s := o.Shipping
		err := tx.QueryRow(ctx, shippingQuery,
			o.ID,
			s.Courier,
			s.Service,
			s.Cost,
			s.ETD,
			s.RecipientName,
			s.Phone,
			s.Street,
			s.City,
			s.Province,
			s.PostalCode,
		).Scan(&s.ID)
		if err != nil {
			return fmt.Errorf("insert order shipping: %w", err)
		}
		s.OrderID = o.ID
	}

	if params.Voucher != nil {
		// The usage limit is re-checked inside the increment so two orders
		// racing for the last redemption cannot both claim it.
		tag, err := tx.Exec(ctx,
			`UPDATE vouchers SET usage_count = usage_count + 1, updated_at = NOW()
			 WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`,
			params.Voucher.ID)
		if err != nil {
			return fmt.Errorf("increment voucher usage: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflict(fmt.Sprintf("voucher %s is no longer available", params.Voucher.Code))
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO voucher_usages (voucher_id, user_id, order_id) VALUES ($1, $2, $3)`,
			params.Voucher.ID, o.UserID, o.ID); err != nil {
			return fmt.Errorf("insert voucher usage: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, params.CartID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE carts SET voucher_id = NULL, updated_at = NOW() WHERE id = $1`, params.CartID); err != nil {
		return fmt.Errorf("clear cart voucher: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const orderColumns = `o.id, o.order_number, o.user_id, o.status, o.payment_status,
	o.subtotal, o.discount_amount, o.shipping_cost, o.total_amount,
	COALESCE(o.voucher_id::text, ''), COALESCE(o.voucher_code, ''), o.notes,
	o.paid_at, o.cancelled_at, o.created_at, o.updated_at`

func scanOrder(row pgx.Row, o *domain.Order, extra ...any) error {
	dest := []any{
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.PaymentStatus,
		&o.Subtotal,
		&o.DiscountAmount,
		&o.ShippingCost,
		&o.TotalAmount,
		&o.VoucherID,
		&o.VoucherCode,
		&o.Notes,
		&o.PaidAt,
		&o.CancelledAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

// GetByNumber retrieves an order by its order number with items aggregated in
// a single round trip and the shipping row joined separately.
func (r *OrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `,
			COALESCE(JSONB_AGG(JSONB_BUILD_OBJECT(
				'id', oi.id,
				'variant_id', oi.variant_id,
				'sku', oi.sku,
				'name', oi.name,
				'price', oi.price,
				'weight_grams', oi.weight_grams,
				'quantity', oi.quantity,
				'subtotal', oi.subtotal
			)) FILTER (WHERE oi.id IS NOT NULL), '[]') AS items
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		WHERE o.order_number = $1
		GROUP BY o.id`

	var (
		o         domain.Order
		itemsJSON []byte
	)
	err := scanOrder(r.pool.QueryRow(ctx, query, orderNumber), &o, &itemsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}

	if err := r.loadShipping(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) loadShipping(ctx context.Context, o *domain.Order) error {
	query := `
		SELECT id, order_id, courier, service, cost, etd, recipient_name,
			phone, street, city, province, postal_code, tracking_number
		FROM order_shippings WHERE order_id = $1`

	var s domain.OrderShipping
	err := r.pool.QueryRow(ctx, query, o.ID).Scan(
		&s.ID,
		&s.OrderID,
		&s.Courier,
		&s.Service,
		&s.Cost,
		&s.ETD,
		&s.RecipientName,
		&s.Phone,
		&s.Street,
		&s.City,
		&s.Province,
		&s.PostalCode,
		&s.TrackingNumber,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("scan order shipping: %w", err)
	}
	o.Shipping = &s
	return nil
}

// List returns orders matching the filter along with the total count. Items
// are batch-loaded with a second query to avoid N+1 round trips.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	conditions := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != nil {
		conditions = append(conditions, "o.user_id = "+arg(*filter.UserID))
	}
	if filter.Status != nil {
		conditions = append(conditions, "o.status = "+arg(*filter.Status))
	}
	if filter.PaymentStatus != nil {
		conditions = append(conditions, "o.payment_status = "+arg(*filter.PaymentStatus))
	}
	if filter.CreatedFrom != nil {
		conditions = append(conditions, "o.created_at >= "+arg(*filter.CreatedFrom))
	}
	if filter.CreatedTo != nil {
		conditions = append(conditions, "o.created_at <= "+arg(*filter.CreatedTo))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := `
		SELECT ` + orderColumns + `, count(*) OVER() AS total
		FROM orders o` + where + `
		ORDER BY o.created_at DESC
		LIMIT ` + arg(filter.PerPage) + ` OFFSET ` + arg((filter.Page-1)*filter.PerPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, filter.PerPage)
	total := 0
	for rows.Next() {
		var o domain.Order
		if err := scanOrder(rows, &o, &total); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}

	if err := r.loadItemsBatch(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *OrderRepository) loadItemsBatch(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]*domain.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
		orders[i].Items = []domain.OrderItem{}
	}

	query := `
		SELECT order_id, id, variant_id, sku, name, price, weight_grams, quantity, subtotal
		FROM order_items WHERE order_id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(
			&orderID,
			&item.ID,
			&item.VariantID,
			&item.SKU,
			&item.Name,
			&item.Price,
			&item.WeightGrams,
			&item.Quantity,
			&item.Subtotal,
		); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := index[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}

	return nil
}

// updateOrderStatusQuery is guarded by the status the transition started from
// so racing writers cannot both apply; zero rows means a concurrent writer won.
const updateOrderStatusQuery = `
	UPDATE orders SET status = $1, payment_status = $2, paid_at = $3,
		cancelled_at = $4, updated_at = NOW()
	WHERE id = $5 AND status = $6`

// UpdateStatus persists an in-memory transition. When restoreStock is true the
// order's lines are returned to the ledger in the same transaction; variants
// that were deleted since the order was placed are skipped and reported.
func (r *OrderRepository) UpdateStatus(ctx context.Context, order *domain.Order, fromStatus string, restoreStock bool) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, updateOrderStatusQuery,
		order.Status,
		order.PaymentStatus,
		order.PaidAt,
		order.CancelledAt,
		order.ID,
		fromStatus,
	)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrConflict
	}

	var missing []string
	if restoreStock {
		missing, err = restoreOrderStock(ctx, tx, order.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return missing, nil
}

// restoreOrderStock returns the order's reserved quantities to the ledger,
// reading the lines inside the transaction. It returns the IDs of variants
// that no longer exist.
func restoreOrderStock(ctx context.Context, tx pgx.Tx, orderID string) ([]string, error) {
	rows, err := tx.Query(ctx,
		`SELECT variant_id, quantity FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	type line struct {
		variantID string
		quantity  int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.variantID, &l.quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	rows.Close()

	var missing []string
	for _, l := range lines {
		tag, err := tx.Exec(ctx,
			`UPDATE product_variants SET stock = stock + $1, updated_at = NOW() WHERE id = $2`,
			l.quantity, l.variantID)
		if err != nil {
			return nil, fmt.Errorf("restore stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			missing = append(missing, l.variantID)
		}
	}

	return missing, nil
}
