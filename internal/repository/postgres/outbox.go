package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/database"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

// OutboxRepository implements repository.OutboxRepository using PostgreSQL.
type OutboxRepository struct {
	pool database.DBTX
}

// NewOutboxRepository creates a new PostgreSQL-backed outbox repository.
func NewOutboxRepository(pool database.DBTX) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Insert records a pending entry.
func (r *OutboxRepository) Insert(ctx context.Context, e *domain.OutboxEntry) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO erp_outbox (kind, payload) VALUES ($1, $2) RETURNING id, status, next_attempt_at, created_at, updated_at`,
		e.Kind, e.Payload,
	).Scan(&e.ID, &e.Status, &e.NextAttemptAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ClaimDue marks up to limit due pending entries as processing and returns
// them. SKIP LOCKED keeps concurrent workers from claiming the same entry.
func (r *OutboxRepository) ClaimDue(ctx context.Context, limit int) ([]domain.OutboxEntry, error) {
	query := `
		UPDATE erp_outbox SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM erp_outbox
			WHERE status = $2 AND next_attempt_at <= NOW()
			ORDER BY next_attempt_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, payload, status, attempts, next_attempt_at,
			COALESCE(last_error, ''), created_at, updated_at`

	rows, err := r.pool.Query(ctx, query,
		domain.OutboxStatusProcessing, domain.OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.OutboxEntry, 0, limit)
	for rows.Next() {
		var e domain.OutboxEntry
		if err := rows.Scan(
			&e.ID,
			&e.Kind,
			&e.Payload,
			&e.Status,
			&e.Attempts,
			&e.NextAttemptAt,
			&e.LastError,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}

	return entries, nil
}

// MarkDone finalizes a delivered entry.
func (r *OutboxRepository) MarkDone(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE erp_outbox SET status = $1, last_error = NULL, updated_at = NOW() WHERE id = $2`,
		domain.OutboxStatusDone, id)
	if err != nil {
		return fmt.Errorf("mark outbox done: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkFailed records a failed attempt and schedules the retry. Entries that
// exhaust their attempts are parked as failed and never claimed again.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, attempts int, lastError string, nextAttempt time.Time) error {
	status := domain.OutboxStatusPending
	if attempts >= domain.MaxOutboxAttempts {
		status = domain.OutboxStatusFailed
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE erp_outbox SET status = $1, attempts = $2, last_error = $3, next_attempt_at = $4, updated_at = NOW() WHERE id = $5`,
		status, attempts, lastError, nextAttempt, id)
	if err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
