package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/provider/payment"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/service"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/httputil"
)

// Webhook signature headers sent by the payment gateway.
const (
	headerSignature = "X-Signature"
	headerTimestamp = "X-Timestamp"
	headerRequestID = "X-Request-ID"
)

// WebhookHandler handles payment gateway webhooks.
type WebhookHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
}

// NewWebhookHandler creates a new webhook HTTP handler.
func NewWebhookHandler(payments *service.PaymentService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		payments: payments,
		logger:   logger,
	}
}

// HandleWebhook handles POST /api/v1/payments/webhook.
//
// Every resolvable outcome answers 200 so the gateway stops retrying; the
// envelope's success flag tells whether the notification changed anything.
// Only a signature failure gets a non-200 (401), and a malformed body a 400.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidWebhookPayload("unreadable request body"), h.logger)
		return
	}

	headers := payment.WebhookHeaders{
		Signature: r.Header.Get(headerSignature),
		Timestamp: r.Header.Get(headerTimestamp),
		RequestID: r.Header.Get(headerRequestID),
	}

	result, err := h.payments.HandleWebhook(r.Context(), headers, body)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Success: result.Processed,
		Data:    result,
	})
}
