package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/service"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/httputil"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/pagination"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/validator"
)

// AdminHandler handles the admin order and sync-log endpoints.
type AdminHandler struct {
	orders *service.OrderService
	syncs  *service.SyncService
	logger *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(orders *service.OrderService, syncs *service.SyncService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		orders: orders,
		syncs:  syncs,
		logger: logger,
	}
}

// UpdateStatusRequest is the JSON request body for an admin status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdatePaymentStatusRequest is the JSON request body for an admin payment
// status correction.
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

// parseOrderFilter builds the typed filter from query parameters. Dates
// accept RFC3339 or plain yyyy-mm-dd; created_to as a plain date is
// inclusive of that whole day.
func parseOrderFilter(r *http.Request) (repository.OrderFilter, error) {
	p := pagination.FromRequest(r)
	filter := repository.OrderFilter{Page: p.Page, PerPage: p.PerPage}

	q := r.URL.Query()
	if v := q.Get("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := q.Get("payment_status"); v != "" {
		filter.PaymentStatus = &v
	}

	if v := q.Get("created_from"); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			return filter, apperrors.InvalidInput("created_from must be an RFC3339 timestamp or yyyy-mm-dd date")
		}
		filter.CreatedFrom = &t
	}
	if v := q.Get("created_to"); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			return filter, apperrors.InvalidInput("created_to must be an RFC3339 timestamp or yyyy-mm-dd date")
		}
		filter.CreatedTo = &t
	}

	return filter, nil
}

func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// ListOrders handles GET /api/v1/admin/orders
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseOrderFilter(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	orders, total, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(orders, total, filter.Page, filter.PerPage))
}

// UpdateOrderStatus handles PUT /api/v1/admin/orders/{orderNumber}/status
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.UpdateOrderStatus(r.Context(), chi.URLParam(r, "orderNumber"), req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, order)
}

// UpdatePaymentStatus handles PUT /api/v1/admin/orders/{orderNumber}/payment-status
func (h *AdminHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdatePaymentStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.UpdatePaymentStatus(r.Context(), chi.URLParam(r, "orderNumber"), req.PaymentStatus)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, order)
}

// ListSyncLogs handles GET /api/v1/admin/sync-logs
func (h *AdminHandler) ListSyncLogs(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)

	logs, total, err := h.syncs.ListLogs(r.Context(), p.Page, p.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(logs, total, p.Page, p.PerPage))
}
