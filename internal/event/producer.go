// Package event publishes the shop's domain events to Kafka. Publishing is
// fire-and-forget from the caller's perspective: services log a publish
// failure and move on, the order of record lives in Postgres.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	pkgkafka "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/kafka"
)

// Kafka topic constants for shop domain events.
const (
	TopicOrderCreated       = "shop.order.created"
	TopicOrderStatusChanged = "shop.order.status_changed"
	TopicPaymentReconciled  = "shop.payment.reconciled"
)

// Aggregate type constants.
const (
	AggregateTypeOrder   = "order"
	AggregateTypePayment = "payment"
)

// Source identifier for events originating from this service.
const SourceShop = "commerce-core"

// OrderCreatedData is the payload for an order.created event (full order snapshot).
type OrderCreatedData struct {
	ID             string          `json:"id"`
	OrderNumber    string          `json:"order_number"`
	UserID         string          `json:"user_id"`
	Status         string          `json:"status"`
	Items          []OrderItemData `json:"items"`
	Subtotal       int64           `json:"subtotal"`
	DiscountAmount int64           `json:"discount_amount"`
	ShippingCost   int64           `json:"shipping_cost"`
	TotalAmount    int64           `json:"total_amount"`
	VoucherCode    string          `json:"voucher_code,omitempty"`
}

// OrderItemData is the event payload for an order item.
type OrderItemData struct {
	ID        string `json:"id"`
	VariantID string `json:"variant_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
}

// PaymentReconciledData is the payload for a payment.reconciled event.
type PaymentReconciledData struct {
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	PaymentStatus string `json:"payment_status"`
	Provider      string `json:"provider"`
	ProviderTxnID string `json:"provider_txn_id,omitempty"`
	Amount        int64  `json:"amount"`
}

// Producer publishes shop domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order.created event with the full order snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ID:        item.ID,
			VariantID: item.VariantID,
			SKU:       item.SKU,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}

	data := OrderCreatedData{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Status:         order.Status,
		Items:          items,
		Subtotal:       order.Subtotal,
		DiscountAmount: order.DiscountAmount,
		ShippingCost:   order.ShippingCost,
		TotalAmount:    order.TotalAmount,
		VoucherCode:    order.VoucherCode,
	}

	event, err := pkgkafka.NewEvent(TopicOrderCreated, order.ID, AggregateTypeOrder, SourceShop, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
	)

	return nil
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, oldStatus string) error {
	data := OrderStatusChangedData{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OldStatus:   oldStatus,
		NewStatus:   order.Status,
	}

	event, err := pkgkafka.NewEvent(TopicOrderStatusChanged, order.ID, AggregateTypeOrder, SourceShop, data)
	if err != nil {
		return fmt.Errorf("create order.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderStatusChanged, event); err != nil {
		return fmt.Errorf("publish order.status_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.status_changed event",
		slog.String("order_id", order.ID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", order.Status),
	)

	return nil
}

// PublishPaymentReconciled publishes a payment.reconciled event.
func (p *Producer) PublishPaymentReconciled(ctx context.Context, order *domain.Order, payment *domain.Payment) error {
	data := PaymentReconciledData{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		PaymentStatus: payment.Status,
		Provider:      payment.Provider,
		ProviderTxnID: payment.ProviderTxnID,
		Amount:        payment.Amount,
	}

	event, err := pkgkafka.NewEvent(TopicPaymentReconciled, payment.ID, AggregateTypePayment, SourceShop, data)
	if err != nil {
		return fmt.Errorf("create payment.reconciled event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPaymentReconciled, event); err != nil {
		return fmt.Errorf("publish payment.reconciled event: %w", err)
	}

	p.logger.DebugContext(ctx, "published payment.reconciled event",
		slog.String("order_id", order.ID),
		slog.String("payment_status", payment.Status),
	)

	return nil
}
