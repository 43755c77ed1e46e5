package domain

import (
	"encoding/base32"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

// Order status constants.
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusProcessing     = "processing"
	OrderStatusShipped        = "shipped"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
	OrderStatusRefunded       = "refunded"
	OrderStatusPaymentFailed  = "payment_failed"
	OrderStatusPaymentExpired = "payment_expired"
)

// Payment status constants (the order-level payment summary).
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusExpired  = "expired"
	PaymentStatusRefunded = "refunded"
)

// Order represents a customer order.
type Order struct {
	ID             string         `json:"id"`
	OrderNumber    string         `json:"order_number"`
	UserID         string         `json:"user_id"`
	Status         string         `json:"status"`
	PaymentStatus  string         `json:"payment_status"`
	Items          []OrderItem    `json:"items"`
	Shipping       *OrderShipping `json:"shipping,omitempty"`
	Subtotal       int64          `json:"subtotal"`
	DiscountAmount int64          `json:"discount_amount"`
	ShippingCost   int64          `json:"shipping_cost"`
	TotalAmount    int64          `json:"total_amount"`
	VoucherID      string         `json:"voucher_id,omitempty"`
	VoucherCode    string         `json:"voucher_code,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	PaidAt         *time.Time     `json:"paid_at,omitempty"`
	CancelledAt    *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// OrderItem is an immutable snapshot of a purchased variant line.
type OrderItem struct {
	ID          string `json:"id"`
	VariantID   string `json:"variant_id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	WeightGrams int    `json:"weight_grams"`
	Quantity    int    `json:"quantity"`
	Subtotal    int64  `json:"subtotal"`
}

// OrderShipping is the frozen shipping selection and destination of an order.
type OrderShipping struct {
	ID             string  `json:"id"`
	OrderID        string  `json:"order_id"`
	Courier        string  `json:"courier"`
	Service        string  `json:"service"`
	Cost           int64   `json:"cost"`
	ETD            string  `json:"etd"`
	RecipientName  string  `json:"recipient_name"`
	Phone          string  `json:"phone"`
	Street         string  `json:"street"`
	City           string  `json:"city"`
	Province       string  `json:"province"`
	PostalCode     string  `json:"postal_code"`
	TrackingNumber *string `json:"tracking_number,omitempty"`
}

// ValidStatuses returns all valid order statuses.
func ValidStatuses() []string {
	return []string{
		OrderStatusPendingPayment,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded,
		OrderStatusPaymentFailed,
		OrderStatusPaymentExpired,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which status transitions are valid. This is the
// single authority on order state changes; both the customer paths and the
// admin endpoints go through it. Admin-only moves (processing → cancelled,
// delivered → refunded) are modeled as transitions here and gated by role at
// the handler layer.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPendingPayment: {OrderStatusProcessing, OrderStatusPaymentFailed, OrderStatusPaymentExpired, OrderStatusCancelled},
		OrderStatusPaymentFailed:  {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusPaymentExpired: {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing:     {OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
		OrderStatusShipped:        {OrderStatusDelivered},
		OrderStatusDelivered:      {OrderStatusRefunded},
		OrderStatusCancelled:      {},
		OrderStatusRefunded:       {},
	}
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// CustomerCancellable reports whether the order owner may cancel it.
// Customers can only cancel before fulfilment starts.
func (o *Order) CustomerCancellable() bool {
	switch o.Status {
	case OrderStatusPendingPayment, OrderStatusPaymentFailed, OrderStatusPaymentExpired:
		return true
	}
	return false
}

// StockRestoring reports whether reaching this status returns the order's
// reserved stock to the ledger.
func StockRestoring(status string) bool {
	return status == OrderStatusCancelled || status == OrderStatusRefunded
}

// ApplyStatus performs the transition to target, stamping the payment summary
// and timestamps that accompany it. It returns InvalidStateTransition if the
// state machine forbids the move.
func (o *Order) ApplyStatus(target string, now time.Time) error {
	if !o.CanTransitionTo(target) {
		return apperrors.InvalidStateTransition(o.Status, target)
	}

	o.Status = target
	o.UpdatedAt = now

	switch target {
	case OrderStatusProcessing:
		o.PaymentStatus = PaymentStatusPaid
		o.PaidAt = &now
	case OrderStatusPaymentFailed:
		o.PaymentStatus = PaymentStatusFailed
	case OrderStatusPaymentExpired:
		o.PaymentStatus = PaymentStatusExpired
	case OrderStatusCancelled:
		o.CancelledAt = &now
	case OrderStatusRefunded:
		o.PaymentStatus = PaymentStatusRefunded
	}

	return nil
}

// orderNumberEncoding is base32 without padding, used for the entropy suffix.
var orderNumberEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewOrderNumber builds a human-readable unique order number:
// "ORD-" + yyyymmdd + "-" + 6 uppercase base32 chars of fresh UUID entropy.
func NewOrderNumber(now time.Time) string {
	id := uuid.New()
	suffix := orderNumberEncoding.EncodeToString(id[:])[:6]
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
