package service

import (
	"context"
	"fmt"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository"
)

// SyncService exposes the ERP synchronization history to the admin surface.
type SyncService struct {
	logs repository.SyncLogRepository
}

// NewSyncService creates a new sync service.
func NewSyncService(logs repository.SyncLogRepository) *SyncService {
	return &SyncService{logs: logs}
}

// ListLogs returns sync runs, newest first.
func (s *SyncService) ListLogs(ctx context.Context, page, perPage int) ([]domain.SyncLog, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	logs, total, err := s.logs.List(ctx, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list sync logs: %w", err)
	}
	return logs, total, nil
}
