package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/database"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

// PaymentRepository implements repository.PaymentRepository using PostgreSQL.
type PaymentRepository struct {
	pool database.DBTX
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool database.DBTX) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, order_id, provider, COALESCE(provider_txn_id, ''), method,
	status, amount, created_at, updated_at`

const insertPaymentQuery = `
	INSERT INTO payments (order_id, provider, provider_txn_id, method, status, amount, raw_payload)
	VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
	RETURNING id, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Provider,
		&p.ProviderTxnID,
		&p.Method,
		&p.Status,
		&p.Amount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}

// Create inserts a payment row.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	err := r.pool.QueryRow(ctx, insertPaymentQuery,
		p.OrderID,
		p.Provider,
		p.ProviderTxnID,
		p.Method,
		p.Status,
		p.Amount,
		p.RawPayload,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetSuccessByOrderID returns the success payment for an order, or
// ErrNotFound. The partial unique index guarantees at most one.
func (r *PaymentRepository) GetSuccessByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 AND status = $2`
	return scanPayment(r.pool.QueryRow(ctx, query, orderID, domain.PaymentRowStatusSuccess))
}

// ListByOrderID returns all payment attempts for an order, oldest first.
func (r *PaymentRepository) ListByOrderID(ctx context.Context, orderID string) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}

	return payments, nil
}

// ApplyReconciliation runs the webhook transaction: the order transition
// guarded by its starting status, the payment row, and the outbox entries,
// all or nothing. Zero order rows updated means a racing webhook already
// moved the order; ErrConflict is returned and everything rolls back.
func (r *PaymentRepository) ApplyReconciliation(ctx context.Context, upd repository.ReconciliationUpdate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o := upd.Order
	tag, err := tx.Exec(ctx, updateOrderStatusQuery,
		o.Status,
		o.PaymentStatus,
		o.PaidAt,
		o.CancelledAt,
		o.ID,
		upd.FromStatus,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}

	p := upd.Payment
	err = tx.QueryRow(ctx, insertPaymentQuery,
		p.OrderID,
		p.Provider,
		p.ProviderTxnID,
		p.Method,
		p.Status,
		p.Amount,
		p.RawPayload,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	for _, e := range upd.Outbox {
		err := tx.QueryRow(ctx,
			`INSERT INTO erp_outbox (kind, payload) VALUES ($1, $2) RETURNING id, status, next_attempt_at, created_at, updated_at`,
			e.Kind, e.Payload,
		).Scan(&e.ID, &e.Status, &e.NextAttemptAt, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
