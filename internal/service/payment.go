package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/event"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/provider/payment"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

// WebhookResult reports what a webhook did. Processed is false for every
// no-op outcome (unknown order, duplicate delivery, racing webhook); the
// gateway still gets a 200 so it stops retrying.
type WebhookResult struct {
	Processed   bool   `json:"processed"`
	Reason      string `json:"reason,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
}

// PaymentService creates gateway checkout sessions and reconciles gateway
// webhooks against orders.
type PaymentService struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	provider payment.Provider
	producer *event.Producer
	logger   *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(orders repository.OrderRepository, payments repository.PaymentRepository, provider payment.Provider, producer *event.Producer, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		orders:   orders,
		payments: payments,
		provider: provider,
		producer: producer,
		logger:   logger,
	}
}

// CreateSession opens a gateway checkout session for an order still awaiting
// payment. customer.ID must be the order owner. Each session attempt is
// recorded as a pending payment row.
func (s *PaymentService) CreateSession(ctx context.Context, orderNumber string, customer payment.Customer) (*domain.PaymentSession, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order", orderNumber)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if customer.ID != "" && order.UserID != customer.ID {
		return nil, apperrors.NotFound("order", orderNumber)
	}

	switch order.Status {
	case domain.OrderStatusPendingPayment, domain.OrderStatusPaymentFailed, domain.OrderStatusPaymentExpired:
	default:
		return nil, apperrors.Conflict(fmt.Sprintf("order in %q status is not awaiting payment", order.Status))
	}

	session, err := s.provider.CreateSession(ctx, order, customer)
	if err != nil {
		return nil, fmt.Errorf("create payment session: %w", err)
	}

	attempt := &domain.Payment{
		OrderID:       order.ID,
		Provider:      s.provider.Name(),
		ProviderTxnID: session.SessionID,
		Status:        domain.PaymentRowStatusPending,
		Amount:        order.TotalAmount,
	}
	if err := s.payments.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("record payment attempt: %w", err)
	}

	s.logger.InfoContext(ctx, "payment session created",
		slog.String("order_number", orderNumber),
		slog.String("session_id", session.SessionID),
	)

	return session, nil
}

// ListPayments returns all payment attempts for the user's order.
func (s *PaymentService) ListPayments(ctx context.Context, orderNumber, userID string) ([]domain.Payment, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order", orderNumber)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if userID != "" && order.UserID != userID {
		return nil, apperrors.NotFound("order", orderNumber)
	}

	payments, err := s.payments.ListByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// HandleWebhook verifies and reconciles a gateway webhook. The signature is
// checked before anything else; a bad signature is the only outcome the
// gateway does not get a 200 for. Reconciliation is idempotent: replays and
// racing deliveries resolve to a no-op result.
func (s *PaymentService) HandleWebhook(ctx context.Context, h payment.WebhookHeaders, body []byte) (*WebhookResult, error) {
	if err := s.provider.VerifyWebhook(h, body); err != nil {
		s.logger.WarnContext(ctx, "webhook signature rejected",
			slog.String("request_id", h.RequestID),
		)
		return nil, err
	}

	notif, err := s.provider.ParseWebhook(body)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetByNumber(ctx, notif.OrderRef)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "webhook for unknown order",
				slog.String("order_ref", notif.OrderRef),
			)
			return &WebhookResult{Reason: "order not found", OrderNumber: notif.OrderRef}, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if _, err := s.payments.GetSuccessByOrderID(ctx, order.ID); err == nil {
		return &WebhookResult{Reason: "payment already reconciled", OrderNumber: order.OrderNumber}, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing payment: %w", err)
	}

	var target, rowStatus string
	switch notif.Status {
	case domain.WebhookStatusSuccess:
		target, rowStatus = domain.OrderStatusProcessing, domain.PaymentRowStatusSuccess
	case domain.WebhookStatusFailed:
		target, rowStatus = domain.OrderStatusPaymentFailed, domain.PaymentRowStatusFailed
	case domain.WebhookStatusExpired:
		target, rowStatus = domain.OrderStatusPaymentExpired, domain.PaymentRowStatusExpired
	case domain.WebhookStatusPending:
		return &WebhookResult{Reason: "pending status ignored", OrderNumber: order.OrderNumber}, nil
	default:
		return nil, apperrors.InvalidWebhookPayload(fmt.Sprintf("unknown status %q", notif.Status))
	}

	oldStatus := order.Status
	if err := order.ApplyStatus(target, time.Now().UTC()); err != nil {
		s.logger.InfoContext(ctx, "webhook ignored, order not awaiting payment",
			slog.String("order_number", order.OrderNumber),
			slog.String("order_status", oldStatus),
			slog.String("webhook_status", notif.Status),
		)
		return &WebhookResult{Reason: "order not awaiting payment", OrderNumber: order.OrderNumber}, nil
	}

	pay := &domain.Payment{
		OrderID:       order.ID,
		Provider:      s.provider.Name(),
		ProviderTxnID: notif.ProviderTxnID,
		Method:        notif.Method,
		Status:        rowStatus,
		Amount:        order.TotalAmount,
		RawPayload:    notif.RawPayload,
	}

	upd := repository.ReconciliationUpdate{
		Order:      order,
		FromStatus: oldStatus,
		Payment:    pay,
	}
	if rowStatus == domain.PaymentRowStatusSuccess {
		entries, err := successOutboxEntries(order)
		if err != nil {
			return nil, err
		}
		upd.Outbox = entries
	}

	if err := s.payments.ApplyReconciliation(ctx, upd); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.logger.InfoContext(ctx, "webhook lost reconciliation race",
				slog.String("order_number", order.OrderNumber),
			)
			return &WebhookResult{Reason: "order was reconciled concurrently", OrderNumber: order.OrderNumber}, nil
		}
		return nil, fmt.Errorf("apply reconciliation: %w", err)
	}

	if err := s.producer.PublishPaymentReconciled(ctx, order, pay); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.reconciled event",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
	}
	if err := s.producer.PublishOrderStatusChanged(ctx, order, oldStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment reconciled",
		slog.String("order_number", order.OrderNumber),
		slog.String("webhook_status", notif.Status),
		slog.String("new_status", order.Status),
	)

	return &WebhookResult{Processed: true, OrderNumber: order.OrderNumber}, nil
}

// successOutboxEntries builds the ERP pushes a paid order enqueues: the order
// itself and the customer it belongs to, so the ERP knows both sides of the
// sale. Contact details come from the shipping record when present.
func successOutboxEntries(order *domain.Order) ([]*domain.OutboxEntry, error) {
	orderPayload, err := json.Marshal(domain.OrderPushPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order push payload: %w", err)
	}

	customer := domain.CustomerPushPayload{UserID: order.UserID}
	if order.Shipping != nil {
		customer.Name = order.Shipping.RecipientName
		customer.Phone = order.Shipping.Phone
	}
	customerPayload, err := json.Marshal(customer)
	if err != nil {
		return nil, fmt.Errorf("marshal customer push payload: %w", err)
	}

	return []*domain.OutboxEntry{
		{Kind: domain.OutboxKindOrderPush, Payload: orderPayload},
		{Kind: domain.OutboxKindCustomerPush, Payload: customerPayload},
	}, nil
}
