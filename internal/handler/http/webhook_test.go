package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/provider/payment"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

func webhookBody(orderNumber, status string) []byte {
	return []byte(`{
		"order": {"invoice_number": "` + orderNumber + `", "amount": 105000},
		"transaction": {"id": "txn-001", "status": "` + status + `", "date": "2026-08-28T10:00:00Z"},
		"payment": {"method": "va", "channel": "bca"}
	}`)
}

func signedWebhookRequest(body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerRequestID, "req-001")
	req.Header.Set(headerTimestamp, "2026-08-28T10:00:01Z")
	req.Header.Set(headerSignature, payment.Sign(testSecret, testClientID, "req-001", "2026-08-28T10:00:01Z", body))
	return req
}

func TestWebhook_SuccessReconciles(t *testing.T) {
	f := newFixture()
	order := sampleOrder()

	f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
	f.payments.On("GetSuccessByOrderID", mock.Anything, order.ID).Return(nil, apperrors.ErrNotFound)
	f.payments.On("ApplyReconciliation", mock.Anything, mock.MatchedBy(func(upd repository.ReconciliationUpdate) bool {
		return upd.Order.Status == domain.OrderStatusProcessing &&
			upd.FromStatus == domain.OrderStatusPendingPayment &&
			upd.Payment.Status == domain.WebhookStatusSuccess &&
			len(upd.Outbox) == 2
	})).Return(nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, signedWebhookRequest(webhookBody(order.OrderNumber, "SUCCESS")))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	f.orders.AssertExpectations(t)
	f.payments.AssertExpectations(t)
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	f := newFixture()
	body := webhookBody("ORD-20260828-AB2CD3", "SUCCESS")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerRequestID, "req-001")
	req.Header.Set(headerTimestamp, "2026-08-28T10:00:01Z")
	req.Header.Set(headerSignature, "deadbeef")
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	f.orders.AssertNotCalled(t, "GetByNumber", mock.Anything, mock.Anything)
}

func TestWebhook_DuplicateAcknowledgedWithoutChanges(t *testing.T) {
	f := newFixture()
	order := sampleOrder()
	order.Status = domain.OrderStatusProcessing
	order.PaymentStatus = domain.PaymentStatusPaid

	f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
	f.payments.On("GetSuccessByOrderID", mock.Anything, order.ID).Return(&domain.Payment{
		ID:      "pay-001",
		OrderID: order.ID,
		Status:  domain.WebhookStatusSuccess,
	}, nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, signedWebhookRequest(webhookBody(order.OrderNumber, "SUCCESS")))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)

	f.payments.AssertNotCalled(t, "ApplyReconciliation", mock.Anything, mock.Anything)
}

func TestWebhook_UnknownOrderAcknowledged(t *testing.T) {
	f := newFixture()

	f.orders.On("GetByNumber", mock.Anything, "ORD-20260828-ZZZZZZ").Return(nil, apperrors.ErrNotFound)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, signedWebhookRequest(webhookBody("ORD-20260828-ZZZZZZ", "SUCCESS")))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
}
