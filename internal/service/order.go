package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/event"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

// CheckoutInput holds the parameters for checkout: where to ship and which
// quoted courier service to use.
type CheckoutInput struct {
	AddressID string `json:"shipping_address_id" validate:"required"`
	Courier   string `json:"courier" validate:"required"`
	Service   string `json:"service" validate:"required"`
	Notes     string `json:"notes"`
}

// CheckoutSummary is the dry-run result of checkout validation. Valid reports
// whether an order created right now would pass every check; Errors lists all
// failed checks rather than stopping at the first, and Warnings flags
// conditions that do not block checkout. The totals are what an order created
// right now would freeze.
type CheckoutSummary struct {
	Valid          bool              `json:"valid"`
	Errors         []string          `json:"errors"`
	Warnings       []string          `json:"warnings"`
	Items          []domain.CartItem `json:"items"`
	Subtotal       int64             `json:"subtotal"`
	DiscountAmount int64             `json:"discount_amount"`
	ShippingCost   int64             `json:"shipping_cost"`
	TotalAmount    int64             `json:"total_amount"`
	VoucherCode    string            `json:"voucher_code,omitempty"`
	Quote          domain.RateQuote  `json:"quote"`
}

// OrderService implements checkout and the order lifecycle. Order creation is
// the only path that decrements stock; cancellation and refund are the only
// paths that restore it.
type OrderService struct {
	orders    repository.OrderRepository
	carts     repository.CartRepository
	variants  repository.VariantRepository
	vouchers  repository.VoucherRepository
	addresses repository.AddressRepository
	shipping  *ShippingService
	producer  *event.Producer
	logger    *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	variants repository.VariantRepository,
	vouchers repository.VoucherRepository,
	addresses repository.AddressRepository,
	shipping *ShippingService,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		carts:     carts,
		variants:  variants,
		vouchers:  vouchers,
		addresses: addresses,
		shipping:  shipping,
		producer:  producer,
		logger:    logger,
	}
}

// checkoutPlan is everything checkout validation resolves: the cart, the
// destination, the voucher (if any), the chosen quote, and the totals.
type checkoutPlan struct {
	cart    *domain.Cart
	address *domain.Address
	voucher *domain.Voucher
	quote   domain.RateQuote
	totals  domain.CartTotals
}

// ValidateCheckout dry-runs checkout: it verifies stock, voucher, address,
// and the chosen shipping service without writing anything, and reports every
// failed check instead of stopping at the first. A valid report does not
// reserve stock; creation can still fail if a concurrent order drains it.
func (s *OrderService) ValidateCheckout(ctx context.Context, userID string, input CheckoutInput) (*CheckoutSummary, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("sign in to check out")
	}
	if input.AddressID == "" {
		return nil, apperrors.InvalidInput("address id is required")
	}
	if input.Courier == "" || input.Service == "" {
		return nil, apperrors.InvalidInput("courier and service are required")
	}

	summary := &CheckoutSummary{Errors: []string{}, Warnings: []string{}}

	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("get cart: %w", err)
		}
		cart = nil
	}
	if cart == nil || cart.IsEmpty() {
		summary.Errors = append(summary.Errors, "cart is empty")
		return summary, nil
	}
	summary.Items = cart.Items

	address, err := s.addresses.GetByID(ctx, input.AddressID, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("get address: %w", err)
		}
		summary.Errors = append(summary.Errors, fmt.Sprintf("address %s not found", input.AddressID))
	}

	if err := s.collectStockProblems(ctx, cart, summary); err != nil {
		return nil, err
	}

	totals := cart.Totals()
	summary.Subtotal = totals.Subtotal
	summary.DiscountAmount = totals.DiscountAmount
	summary.TotalAmount = totals.Total

	if cart.Voucher != nil {
		usageCount, err := s.vouchers.CountUsagesByUser(ctx, cart.Voucher.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("count voucher usages: %w", err)
		}
		if ok, reason := cart.Voucher.Validate(totals.Subtotal, usageCount, time.Now().UTC()); !ok {
			summary.Errors = append(summary.Errors, reason)
		} else {
			summary.VoucherCode = cart.Voucher.Code
		}
	}

	if address != nil {
		quote, err := s.shipping.SelectQuote(ctx, address.City, cart.TotalWeightGrams(), input.Courier, input.Service)
		if err != nil {
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				return nil, err
			}
			summary.Errors = append(summary.Errors, appErr.Message)
		} else {
			summary.Quote = *quote
			summary.ShippingCost = quote.Cost
			summary.TotalAmount += quote.Cost
		}
	}

	summary.Valid = len(summary.Errors) == 0
	return summary, nil
}

// CreateOrder turns the user's cart into an order. Stock decrements, the
// order insert, voucher redemption, and cart clearing all commit in one
// transaction; any failure leaves everything untouched.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, input CheckoutInput) (*domain.Order, error) {
	plan, err := s.planCheckout(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := s.buildOrder(plan, userID, input.Notes, now)

	err = s.orders.CreateOrder(ctx, repository.CreateOrderParams{
		Order:   order,
		CartID:  plan.cart.ID,
		Voucher: plan.voucher,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_number", order.OrderNumber),
		slog.String("user_id", userID),
		slog.Int64("total_amount", order.TotalAmount),
	)

	return order, nil
}

// GetOrder retrieves an order by number. When userID is non-empty the order
// must belong to that user; other users' orders read as not found.
func (s *OrderService) GetOrder(ctx context.Context, orderNumber, userID string) (*domain.Order, error) {
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
	return order, nil
}

// ListOrders returns a filtered, paginated order listing.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// ListUserOrders returns the given user's orders, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, userID string, page, perPage int) ([]domain.Order, int, error) {
	return s.ListOrders(ctx, repository.OrderFilter{
		UserID:  &userID,
		Page:    page,
		PerPage: perPage,
	})
}

// CancelOrder cancels the user's own order. Customers may only cancel before
// fulfilment starts; cancellation restores the order's stock.
func (s *OrderService) CancelOrder(ctx context.Context, orderNumber, userID string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, orderNumber, userID)
	if err != nil {
		return nil, err
	}

	if !order.CustomerCancellable() {
		return nil, apperrors.Forbidden(fmt.Sprintf("order in %q status can no longer be cancelled", order.Status))
	}

	return s.transition(ctx, order, domain.OrderStatusCancelled)
}

// UpdateOrderStatus performs an admin status transition, validated by the
// order state machine. Transitions into cancelled or refunded restore stock.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderNumber, newStatus string) (*domain.Order, error) {
	if !domain.IsValidStatus(newStatus) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s", newStatus, strings.Join(domain.ValidStatuses(), ", ")))
	}

	order, err := s.GetOrder(ctx, orderNumber, "")
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, order, newStatus)
}

// UpdatePaymentStatus performs an admin payment-status correction. Payment
// statuses are projections of order state, so the correction is expressed as
// the order transition that carries it.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderNumber, paymentStatus string) (*domain.Order, error) {
	var target string
	switch paymentStatus {
	case domain.PaymentStatusPaid:
		target = domain.OrderStatusProcessing
	case domain.PaymentStatusFailed:
		target = domain.OrderStatusPaymentFailed
	case domain.PaymentStatusExpired:
		target = domain.OrderStatusPaymentExpired
	case domain.PaymentStatusRefunded:
		target = domain.OrderStatusRefunded
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("payment status %q cannot be set directly", paymentStatus))
	}

	order, err := s.GetOrder(ctx, orderNumber, "")
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, order, target)
}

// transition applies a status change through the single state-machine
// authority and persists it with the racing-writer guard.
func (s *OrderService) transition(ctx context.Context, order *domain.Order, newStatus string) (*domain.Order, error) {
	oldStatus := order.Status

	if err := order.ApplyStatus(newStatus, time.Now().UTC()); err != nil {
		return nil, err
	}

	missing, err := s.orders.UpdateStatus(ctx, order, oldStatus, domain.StockRestoring(newStatus))
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.Conflict("order was updated concurrently, please retry")
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if len(missing) > 0 {
		s.logger.WarnContext(ctx, "stock restore skipped missing variants",
			slog.String("order_number", order.OrderNumber),
			slog.Any("variant_ids", missing),
		)
	}

	if err := s.producer.PublishOrderStatusChanged(ctx, order, oldStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_number", order.OrderNumber),
		slog.String("old_status", oldStatus),
		slog.String("new_status", order.Status),
	)

	return order, nil
}

// planCheckout validates everything checkout needs and resolves the inputs an
// order is built from.
func (s *OrderService) planCheckout(ctx context.Context, userID string, input CheckoutInput) (*checkoutPlan, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("sign in to check out")
	}
	if input.AddressID == "" {
		return nil, apperrors.InvalidInput("address id is required")
	}
	if input.Courier == "" || input.Service == "" {
		return nil, apperrors.InvalidInput("courier and service are required")
	}

	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.EmptyCart()
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, apperrors.EmptyCart()
	}

	address, err := s.addresses.GetByID(ctx, input.AddressID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("address", input.AddressID)
		}
		return nil, fmt.Errorf("get address: %w", err)
	}

	if err := s.checkStock(ctx, cart); err != nil {
		return nil, err
	}

	totals := cart.Totals()

	var voucher *domain.Voucher
	if cart.Voucher != nil {
		usageCount, err := s.vouchers.CountUsagesByUser(ctx, cart.Voucher.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("count voucher usages: %w", err)
		}
		if ok, reason := cart.Voucher.Validate(totals.Subtotal, usageCount, time.Now().UTC()); !ok {
			return nil, apperrors.InvalidInput(reason)
		}
		voucher = cart.Voucher
	}

	quote, err := s.shipping.SelectQuote(ctx, address.City, cart.TotalWeightGrams(), input.Courier, input.Service)
	if err != nil {
		return nil, err
	}

	return &checkoutPlan{
		cart:    cart,
		address: address,
		voucher: voucher,
		quote:   *quote,
		totals:  totals,
	}, nil
}

// checkStock verifies every cart line against the current variant rows. The
// real reservation happens in the creation transaction; this pass surfaces
// inactive variants and obvious oversells early.
func (s *OrderService) checkStock(ctx context.Context, cart *domain.Cart) error {
	ids := make([]string, len(cart.Items))
	for i := range cart.Items {
		ids[i] = cart.Items[i].VariantID
	}

	variants, err := s.variants.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("get variants: %w", err)
	}

	for i := range cart.Items {
		line := &cart.Items[i]
		variant, ok := variants[line.VariantID]
		if !ok {
			return apperrors.NotFound("variant", line.VariantID)
		}
		if !variant.IsActive {
			return apperrors.InvalidInput(fmt.Sprintf("variant %s is no longer available", variant.SKU))
		}
		if line.Quantity > variant.Stock {
			return apperrors.InsufficientStock(variant.SKU)
		}
	}
	return nil
}

// collectStockProblems appends a report line for every cart line that could
// not be ordered as-is. A line that would take the variant's remaining stock
// still passes but gets a warning.
func (s *OrderService) collectStockProblems(ctx context.Context, cart *domain.Cart, summary *CheckoutSummary) error {
	ids := make([]string, len(cart.Items))
	for i := range cart.Items {
		ids[i] = cart.Items[i].VariantID
	}

	variants, err := s.variants.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("get variants: %w", err)
	}

	for i := range cart.Items {
		line := &cart.Items[i]
		variant, ok := variants[line.VariantID]
		if !ok {
			summary.Errors = append(summary.Errors, fmt.Sprintf("variant %s no longer exists", line.SKU))
			continue
		}
		switch {
		case !variant.IsActive:
			summary.Errors = append(summary.Errors, fmt.Sprintf("variant %s is no longer available", variant.SKU))
		case line.Quantity > variant.Stock:
			summary.Errors = append(summary.Errors, fmt.Sprintf(
				"insufficient stock for sku %s: %d requested, %d available",
				variant.SKU, line.Quantity, variant.Stock))
		case line.Quantity == variant.Stock:
			summary.Warnings = append(summary.Warnings, fmt.Sprintf(
				"sku %s takes the last %d in stock", variant.SKU, variant.Stock))
		}
	}
	return nil
}

// buildOrder freezes the checkout plan into an order aggregate.
func (s *OrderService) buildOrder(plan *checkoutPlan, userID, notes string, now time.Time) *domain.Order {
	orderID := uuid.New().String()

	items := make([]domain.OrderItem, len(plan.cart.Items))
	for i := range plan.cart.Items {
		line := &plan.cart.Items[i]
		weight := line.WeightGrams
		if weight <= 0 {
			weight = domain.DefaultItemWeightGrams
		}
		items[i] = domain.OrderItem{
			VariantID:   line.VariantID,
			SKU:         line.SKU,
			Name:        line.Name,
			Price:       line.Price,
			WeightGrams: weight,
			Quantity:    line.Quantity,
			Subtotal:    line.Subtotal(),
		}
	}

	order := &domain.Order{
		ID:             orderID,
		OrderNumber:    domain.NewOrderNumber(now),
		UserID:         userID,
		Status:         domain.OrderStatusPendingPayment,
		PaymentStatus:  domain.PaymentStatusPending,
		Items:          items,
		Subtotal:       plan.totals.Subtotal,
		DiscountAmount: plan.totals.DiscountAmount,
		ShippingCost:   plan.quote.Cost,
		TotalAmount:    plan.totals.Total + plan.quote.Cost,
		Notes:          notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if plan.voucher != nil {
		order.VoucherID = plan.voucher.ID
		order.VoucherCode = plan.voucher.Code
	}

	order.Shipping = &domain.OrderShipping{
		OrderID:       orderID,
		Courier:       plan.quote.Courier,
		Service:       plan.quote.Service,
		Cost:          plan.quote.Cost,
		ETD:           plan.quote.ETD,
		RecipientName: plan.address.RecipientName,
		Phone:         plan.address.Phone,
		Street:        plan.address.Street,
		City:          plan.address.City,
		Province:      plan.address.Province,
		PostalCode:    plan.address.PostalCode,
	}

	return order
}
