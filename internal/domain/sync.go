package domain

import (
	"encoding/json"
	"time"
)

// Outbox entry kinds drained by the ERP sync worker.
const (
	OutboxKindOrderPush    = "erp.order.push"
	OutboxKindCustomerPush = "erp.customer.push"
)

// Outbox entry statuses.
const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
	OutboxStatusDone       = "done"
	OutboxStatusFailed     = "failed"
)

// MaxOutboxAttempts is how many delivery attempts an outbox entry gets before
// it is parked as failed.
const MaxOutboxAttempts = 5

// OutboxEntry is a pending ERP side effect recorded transactionally alongside
// the state change that caused it. The sync worker drains entries
// asynchronously so gateway webhooks never block on the ERP.
type OutboxEntry struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderPushPayload is the payload of an erp.order.push outbox entry. The sync
// worker reloads the order by number before pushing so the ERP always sees
// the committed state.
type OrderPushPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
}

// CustomerPushPayload is the payload of an erp.customer.push outbox entry.
type CustomerPushPayload struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

// Sync directions.
const (
	SyncDirectionPush = "push"
	SyncDirectionPull = "pull"
)

// Sync run outcomes.
const (
	SyncStatusSuccess = "success"
	SyncStatusPartial = "partial"
	SyncStatusFailed  = "failed"
)

// SyncLog records one ERP synchronization run. Every run writes exactly one
// row, including failed runs.
type SyncLog struct {
	ID            string    `json:"id"`
	Direction     string    `json:"direction"`
	Entity        string    `json:"entity"`
	Status        string    `json:"status"`
	RecordsSynced int       `json:"records_synced"`
	RecordsFailed int       `json:"records_failed"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	DurationMS    int64     `json:"duration_ms"`
	Error         string    `json:"error,omitempty"`
}
