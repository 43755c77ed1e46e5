package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/httpclient"
)

// Config holds payment gateway credentials and endpoints.
type Config struct {
	BaseURL      string
	ClientID     string
	SecretKey    string
	CallbackURL  string
	ProviderName string
}

// Gateway is the HTTP payment gateway adapter.
type Gateway struct {
	cfg    Config
	client *httpclient.CircuitBreakerClient
}

// NewGateway creates a gateway adapter from config.
func NewGateway(cfg Config, client *httpclient.CircuitBreakerClient) *Gateway {
	return &Gateway{
		cfg:    cfg,
		client: client,
	}
}

// Name identifies the provider on payment rows.
func (g *Gateway) Name() string {
	return g.cfg.ProviderName
}

type sessionRequest struct {
	Order struct {
		InvoiceNumber string `json:"invoice_number"`
		Amount        int64  `json:"amount"`
		CallbackURL   string `json:"callback_url"`
	} `json:"order"`
	Customer Customer `json:"customer"`
}

type sessionResponse struct {
	SessionID  string    `json:"session_id"`
	PaymentURL string    `json:"payment_url"`
	ExpiredAt  time.Time `json:"expired_at"`
}

// CreateSession opens a gateway checkout session for the order.
func (g *Gateway) CreateSession(ctx context.Context, order *domain.Order, customer Customer) (*domain.PaymentSession, error) {
	var reqBody sessionRequest
	reqBody.Order.InvoiceNumber = order.OrderNumber
	reqBody.Order.Amount = order.TotalAmount
	reqBody.Order.CallbackURL = g.cfg.CallbackURL
	reqBody.Customer = customer

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	requestID := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/checkout/v1/payment", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Id", g.cfg.ClientID)
	req.Header.Set("Request-Id", requestID)
	req.Header.Set("Request-Timestamp", timestamp)
	req.Header.Set("Signature", Sign(g.cfg.SecretKey, g.cfg.ClientID, requestID, timestamp, payload))

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		return nil, apperrors.ServiceUnavailable("payment gateway unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, "payment gateway")
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}

	return &domain.PaymentSession{
		SessionID:   sr.SessionID,
		RedirectURL: sr.PaymentURL,
		ExpiresAt:   sr.ExpiredAt,
	}, nil
}

// VerifyWebhook checks the webhook signature against the raw body.
func (g *Gateway) VerifyWebhook(h WebhookHeaders, body []byte) error {
	if !verifySignature(g.cfg.SecretKey, g.cfg.ClientID, h, body) {
		return apperrors.InvalidSignature()
	}
	return nil
}

// ParseWebhook normalizes a verified webhook body.
func (g *Gateway) ParseWebhook(body []byte) (*domain.WebhookNotification, error) {
	return parseWebhook(body)
}
