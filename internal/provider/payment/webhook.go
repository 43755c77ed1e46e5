package payment

import (
	"encoding/json"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

// webhookBody is the gateway's notification shape.
type webhookBody struct {
	Order struct {
		InvoiceNumber string `json:"invoice_number"`
		Amount        int64  `json:"amount"`
	} `json:"order"`
	Transaction struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Date   string `json:"date"`
	} `json:"transaction"`
	Payment struct {
		Method  string `json:"method"`
		Channel string `json:"channel,omitempty"`
	} `json:"payment"`
}

// parseWebhook normalizes a gateway webhook body. The raw payload is retained
// on the notification for audit.
func parseWebhook(body []byte) (*domain.WebhookNotification, error) {
	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, apperrors.InvalidWebhookPayload("malformed webhook body")
	}

	if wb.Order.InvoiceNumber == "" {
		return nil, apperrors.InvalidWebhookPayload("missing order.invoice_number")
	}
	if !domain.IsValidWebhookStatus(wb.Transaction.Status) {
		return nil, apperrors.InvalidWebhookPayload("unknown transaction.status " + wb.Transaction.Status)
	}

	raw := make([]byte, len(body))
	copy(raw, body)

	return &domain.WebhookNotification{
		OrderRef:      wb.Order.InvoiceNumber,
		ProviderTxnID: wb.Transaction.ID,
		Status:        wb.Transaction.Status,
		Method:        wb.Payment.Method,
		RawPayload:    raw,
	}, nil
}
