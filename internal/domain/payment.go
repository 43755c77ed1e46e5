package domain

import "time"

// Payment row statuses.
const (
	PaymentRowStatusPending = "pending"
	PaymentRowStatusSuccess = "success"
	PaymentRowStatusFailed  = "failed"
	PaymentRowStatusExpired = "expired"
)

// Normalized gateway webhook statuses.
const (
	WebhookStatusSuccess = "SUCCESS"
	WebhookStatusFailed  = "FAILED"
	WebhookStatusPending = "PENDING"
	WebhookStatusExpired = "EXPIRED"
)

// Payment is one payment attempt against an order. A partial unique index
// guarantees at most one success row per order; that row is the idempotency
// guard for webhook reconciliation.
type Payment struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	Provider      string    `json:"provider"`
	ProviderTxnID string    `json:"provider_txn_id,omitempty"`
	Method        string    `json:"method,omitempty"`
	Status        string    `json:"status"`
	Amount        int64     `json:"amount"`
	RawPayload    []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WebhookNotification is the normalized form of a gateway webhook, produced
// by the payment provider adapter regardless of the underlying gateway.
type WebhookNotification struct {
	OrderRef      string `json:"order_ref"`
	ProviderTxnID string `json:"provider_transaction_id"`
	Status        string `json:"status"`
	Method        string `json:"method"`
	RawPayload    []byte `json:"-"`
}

// IsValidWebhookStatus reports whether s is a normalized webhook status.
func IsValidWebhookStatus(s string) bool {
	switch s {
	case WebhookStatusSuccess, WebhookStatusFailed, WebhookStatusPending, WebhookStatusExpired:
		return true
	}
	return false
}

// PaymentSession is the gateway checkout session handed back to the client.
type PaymentSession struct {
	SessionID   string    `json:"session_id"`
	RedirectURL string    `json:"redirect_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
