package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/provider/payment"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/service"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/httputil"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/middleware"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/pagination"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/validator"
)

// OrderHandler handles HTTP requests for checkout and order endpoints.
type OrderHandler struct {
	orders   *service.OrderService
	payments *service.PaymentService
	logger   *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(orders *service.OrderService, payments *service.PaymentService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		payments: payments,
		logger:   logger,
	}
}

// ValidateCheckout handles POST /api/v1/checkout/validate
func (h *OrderHandler) ValidateCheckout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req service.CheckoutInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	summary, err := h.orders.ValidateCheckout(r.Context(), userID, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, summary)
}

// CreateOrder handles POST /api/v1/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req service.CheckoutInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), userID, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders (the caller's own orders).
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	p := pagination.FromRequest(r)

	orders, total, err := h.orders.ListUserOrders(r.Context(), userID, p.Page, p.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(orders, total, p.Page, p.PerPage))
}

// GetOrder handles GET /api/v1/orders/{orderNumber}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderNumber"), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, order)
}

// CancelOrder handles POST /api/v1/orders/{orderNumber}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	order, err := h.orders.CancelOrder(r.Context(), chi.URLParam(r, "orderNumber"), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, order)
}

// ListPayments handles GET /api/v1/orders/{orderNumber}/payments
func (h *OrderHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	payments, err := h.payments.ListPayments(r.Context(), chi.URLParam(r, "orderNumber"), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, payments)
}

// CreatePaymentSession handles POST /api/v1/orders/{orderNumber}/payment-session
func (h *OrderHandler) CreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	session, err := h.payments.CreateSession(r.Context(), chi.URLParam(r, "orderNumber"), payment.Customer{ID: userID})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, session)
}
