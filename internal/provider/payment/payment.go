// Package payment adapts the external payment gateway: checkout session
// creation, webhook signature verification, and webhook normalization. A mock
// gateway with deterministic responses sits behind the same interface for
// environments without gateway credentials.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
)

// Customer is the buyer identity sent with a checkout session request.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// WebhookHeaders carries the signature material from the gateway's request
// headers.
type WebhookHeaders struct {
	Signature string
	Timestamp string
	RequestID string
}

// Provider is the payment gateway contract. Adapters are plain structs
// constructed from config and injected; swapping credentials means
// constructing a new adapter, never mutating a live one.
type Provider interface {
	// CreateSession opens a gateway checkout session for the order.
	CreateSession(ctx context.Context, order *domain.Order, customer Customer) (*domain.PaymentSession, error)

	// VerifyWebhook checks the webhook signature against the raw body. It must
	// be called before the body is trusted or any database read happens.
	VerifyWebhook(h WebhookHeaders, body []byte) error

	// ParseWebhook normalizes a verified webhook body.
	ParseWebhook(body []byte) (*domain.WebhookNotification, error)

	// Name identifies the provider on payment rows.
	Name() string
}

// Sign computes the webhook signature: HMAC-SHA256 over
// clientId:requestId:timestamp:body, hex encoded.
func Sign(secret, clientID, requestID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%s:%s:", clientID, requestID, timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature is shared by the real and mock gateways; both enforce the
// same signature scheme.
func verifySignature(secret, clientID string, h WebhookHeaders, body []byte) bool {
	expected := Sign(secret, clientID, h.RequestID, h.Timestamp, body)
	return hmac.Equal([]byte(expected), []byte(h.Signature))
}
