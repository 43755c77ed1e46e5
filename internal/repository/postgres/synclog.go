package postgres

import (
	"context"
	"fmt"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/database"
)

// SyncLogRepository implements repository.SyncLogRepository using PostgreSQL.
type SyncLogRepository struct {
	pool database.DBTX
}

// NewSyncLogRepository creates a new PostgreSQL-backed sync log repository.
func NewSyncLogRepository(pool database.DBTX) *SyncLogRepository {
	return &SyncLogRepository{pool: pool}
}

// Insert writes one run record.
func (r *SyncLogRepository) Insert(ctx context.Context, l *domain.SyncLog) error {
	query := `
		INSERT INTO erp_sync_logs (direction, entity, status, records_synced,
			records_failed, started_at, finished_at, duration_ms, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		l.Direction,
		l.Entity,
		l.Status,
		l.RecordsSynced,
		l.RecordsFailed,
		l.StartedAt,
		l.FinishedAt,
		l.DurationMS,
		l.Error,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("insert sync log: %w", err)
	}
	return nil
}

// List returns sync logs, newest first, with the total count.
func (r *SyncLogRepository) List(ctx context.Context, page, perPage int) ([]domain.SyncLog, int, error) {
	query := `
		SELECT id, direction, entity, status, records_synced, records_failed,
			started_at, finished_at, duration_ms, COALESCE(error, ''),
			count(*) OVER() AS total
		FROM erp_sync_logs
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("query sync logs: %w", err)
	}
	defer rows.Close()

	logs := make([]domain.SyncLog, 0, perPage)
	total := 0
	for rows.Next() {
		var l domain.SyncLog
		if err := rows.Scan(
			&l.ID,
			&l.Direction,
			&l.Entity,
			&l.Status,
			&l.RecordsSynced,
			&l.RecordsFailed,
			&l.StartedAt,
			&l.FinishedAt,
			&l.DurationMS,
			&l.Error,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan sync log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sync logs: %w", err)
	}

	return logs, total, nil
}
