package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

// MockProviderName marks payment rows created through the mock gateway.
const MockProviderName = "mock"

// Mock is the no-credentials gateway used outside production. Responses are
// deterministic: the same order always yields the same session. It enforces
// the same signature scheme as the real gateway so webhook handling is
// exercised identically.
type Mock struct {
	clientID  string
	secretKey string
}

// NewMock creates a mock gateway. The clientID and secret default when empty
// so a zero config still produces a working adapter.
func NewMock(clientID, secretKey string) *Mock {
	if clientID == "" {
		clientID = "mock-client"
	}
	if secretKey == "" {
		secretKey = "mock-secret"
	}
	return &Mock{clientID: clientID, secretKey: secretKey}
}

// Name identifies the provider on payment rows.
func (m *Mock) Name() string {
	return MockProviderName
}

// CreateSession returns a deterministic checkout session derived from the
// order number.
func (m *Mock) CreateSession(_ context.Context, order *domain.Order, _ Customer) (*domain.PaymentSession, error) {
	sum := sha256.Sum256([]byte(order.OrderNumber))
	sessionID := "mock-" + hex.EncodeToString(sum[:8])

	return &domain.PaymentSession{
		SessionID:   sessionID,
		RedirectURL: "https://pay.mock.invalid/checkout/" + sessionID,
		ExpiresAt:   time.Now().UTC().Add(24 * time.Hour),
	}, nil
}

// VerifyWebhook checks the webhook signature against the raw body.
func (m *Mock) VerifyWebhook(h WebhookHeaders, body []byte) error {
	if !verifySignature(m.secretKey, m.clientID, h, body) {
		return apperrors.InvalidSignature()
	}
	return nil
}

// ParseWebhook normalizes a verified webhook body.
func (m *Mock) ParseWebhook(body []byte) (*domain.WebhookNotification, error) {
	return parseWebhook(body)
}
