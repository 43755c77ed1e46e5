// Package worker runs the background ERP synchronization: draining the
// transactional outbox (order and customer pushes) and pulling variant stock
// snapshots. Every run writes a sync log row, failed runs included.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/provider/erp"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

var (
	outboxEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "erp_outbox_entries_total",
			Help: "Outbox entries processed by the ERP sync worker.",
		},
		[]string{"kind", "result"},
	)
	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "erp_sync_runs_total",
			Help: "ERP synchronization runs by direction and outcome.",
		},
		[]string{"direction", "status"},
	)
	syncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "erp_sync_run_duration_seconds",
			Help:    "Duration of ERP synchronization runs.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction"},
	)
)

// retryBaseDelay is the backoff base for failed outbox deliveries; attempt n
// waits base * 2^(n-1), capped at retryMaxDelay.
const (
	retryBaseDelay = 30 * time.Second
	retryMaxDelay  = 30 * time.Minute
)

// Config tunes the sync worker loops.
type Config struct {
	DrainInterval time.Duration
	PullInterval  time.Duration
	BatchSize     int
}

// DefaultConfig returns the worker defaults: outbox drained every 10 seconds,
// stock pulled hourly, 20 entries per drain batch.
func DefaultConfig() Config {
	return Config{
		DrainInterval: 10 * time.Second,
		PullInterval:  time.Hour,
		BatchSize:     20,
	}
}

// ERPSyncWorker drains the ERP outbox and runs periodic stock pulls.
type ERPSyncWorker struct {
	outbox   repository.OutboxRepository
	orders   repository.OrderRepository
	variants repository.VariantRepository
	syncLogs repository.SyncLogRepository
	erp      erp.Client
	cfg      Config
	logger   *slog.Logger
}

// New creates an ERP sync worker.
func New(
	outbox repository.OutboxRepository,
	orders repository.OrderRepository,
	variants repository.VariantRepository,
	syncLogs repository.SyncLogRepository,
	erpClient erp.Client,
	cfg Config,
	logger *slog.Logger,
) *ERPSyncWorker {
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = DefaultConfig().DrainInterval
	}
	if cfg.PullInterval <= 0 {
		cfg.PullInterval = DefaultConfig().PullInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &ERPSyncWorker{
		outbox:   outbox,
		orders:   orders,
		variants: variants,
		syncLogs: syncLogs,
		erp:      erpClient,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run blocks draining the outbox and pulling stock until ctx is canceled.
func (w *ERPSyncWorker) Run(ctx context.Context) {
	drain := time.NewTicker(w.cfg.DrainInterval)
	defer drain.Stop()
	pull := time.NewTicker(w.cfg.PullInterval)
	defer pull.Stop()

	w.logger.Info("erp sync worker started",
		slog.Duration("drain_interval", w.cfg.DrainInterval),
		slog.Duration("pull_interval", w.cfg.PullInterval),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("erp sync worker stopped")
			return
		case <-drain.C:
			if err := w.DrainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed",
					slog.String("error", err.Error()),
				)
			}
		case <-pull.C:
			if err := w.PullStockOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "stock pull failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// DrainOnce claims due outbox entries and delivers them to the ERP. A run
// that claims nothing writes no sync log; a run that claims entries always
// writes exactly one.
func (w *ERPSyncWorker) DrainOnce(ctx context.Context) error {
	started := time.Now().UTC()

	entries, err := w.outbox.ClaimDue(ctx, w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("claim outbox entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	synced, failed := 0, 0
	var lastErr error
	for i := range entries {
		if err := w.deliver(ctx, &entries[i]); err != nil {
			failed++
			lastErr = err
			outboxEntriesTotal.WithLabelValues(entries[i].Kind, "failed").Inc()
		} else {
			synced++
			outboxEntriesTotal.WithLabelValues(entries[i].Kind, "done").Inc()
		}
	}

	w.recordRun(ctx, domain.SyncDirectionPush, "outbox", synced, failed, started, lastErr)
	return nil
}

// deliver pushes one outbox entry to the ERP and finalizes it. A failed
// delivery is rescheduled with exponential backoff until the entry exhausts
// its attempts.
func (w *ERPSyncWorker) deliver(ctx context.Context, entry *domain.OutboxEntry) error {
	err := w.push(ctx, entry)
	if err == nil {
		if err := w.outbox.MarkDone(ctx, entry.ID); err != nil {
			return fmt.Errorf("mark outbox entry done: %w", err)
		}
		return nil
	}

	attempts := entry.Attempts + 1
	next := time.Now().UTC().Add(backoff(attempts))
	if markErr := w.outbox.MarkFailed(ctx, entry.ID, attempts, err.Error(), next); markErr != nil {
		return fmt.Errorf("mark outbox entry failed: %w", markErr)
	}

	w.logger.WarnContext(ctx, "outbox delivery failed",
		slog.String("entry_id", entry.ID),
		slog.String("kind", entry.Kind),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
	return err
}

// push dispatches an entry by kind.
func (w *ERPSyncWorker) push(ctx context.Context, entry *domain.OutboxEntry) error {
	switch entry.Kind {
	case domain.OutboxKindOrderPush:
		var payload domain.OrderPushPayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal order push payload: %w", err)
		}

		order, err := w.orders.GetByNumber(ctx, payload.OrderNumber)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("order %s no longer exists", payload.OrderNumber)
			}
			return fmt.Errorf("load order for push: %w", err)
		}

		erpID, err := w.erp.PushOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("push order to erp: %w", err)
		}

		w.logger.InfoContext(ctx, "order pushed to erp",
			slog.String("order_number", order.OrderNumber),
			slog.String("erp_order_id", erpID),
		)
		return nil

	case domain.OutboxKindCustomerPush:
		var payload domain.CustomerPushPayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal customer push payload: %w", err)
		}

		err := w.erp.PushCustomer(ctx, erp.Customer{
			ID:    payload.UserID,
			Name:  payload.Name,
			Email: payload.Email,
			Phone: payload.Phone,
		})
		if err != nil {
			return fmt.Errorf("push customer to erp: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown outbox kind %q", entry.Kind)
	}
}

// PullStockOnce pulls the ERP variant snapshot and overwrites local stock,
// last write wins. Every pull run writes a sync log row, failures included.
func (w *ERPSyncWorker) PullStockOnce(ctx context.Context) error {
	started := time.Now().UTC()

	snapshot, err := w.erp.PullVariants(ctx)
	if err != nil {
		w.recordRun(ctx, domain.SyncDirectionPull, "variant", 0, 0, started, err)
		return fmt.Errorf("pull variants from erp: %w", err)
	}

	written, err := w.variants.UpsertFromERP(ctx, snapshot)
	if err != nil {
		w.recordRun(ctx, domain.SyncDirectionPull, "variant", 0, len(snapshot), started, err)
		return fmt.Errorf("apply variant snapshot: %w", err)
	}

	w.recordRun(ctx, domain.SyncDirectionPull, "variant", written, 0, started, nil)

	w.logger.InfoContext(ctx, "variant stock pulled from erp",
		slog.Int("variants", written),
	)
	return nil
}

// recordRun writes the mandatory sync log row and observes the run metrics.
func (w *ERPSyncWorker) recordRun(ctx context.Context, direction, entity string, synced, failed int, started time.Time, runErr error) {
	finished := time.Now().UTC()

	status := domain.SyncStatusSuccess
	switch {
	case runErr != nil && synced == 0:
		status = domain.SyncStatusFailed
	case failed > 0:
		status = domain.SyncStatusPartial
	}

	row := &domain.SyncLog{
		Direction:     direction,
		Entity:        entity,
		Status:        status,
		RecordsSynced: synced,
		RecordsFailed: failed,
		StartedAt:     started,
		FinishedAt:    finished,
		DurationMS:    finished.Sub(started).Milliseconds(),
	}
	if runErr != nil {
		row.Error = runErr.Error()
	}

	if err := w.syncLogs.Insert(ctx, row); err != nil {
		w.logger.ErrorContext(ctx, "failed to record sync run",
			slog.String("direction", direction),
			slog.String("error", err.Error()),
		)
	}

	syncRunsTotal.WithLabelValues(direction, status).Inc()
	syncRunDuration.WithLabelValues(direction).Observe(finished.Sub(started).Seconds())
}

// backoff returns the retry delay for the nth attempt.
func backoff(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	if d > retryMaxDelay || d <= 0 {
		return retryMaxDelay
	}
	return d
}
