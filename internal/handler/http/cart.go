// Package http exposes the storefront and admin REST API.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/service"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/httputil"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/middleware"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/validator"
)

// sessionHeader carries the guest cart key for unauthenticated requests.
const sessionHeader = "X-Session-ID"

// identity resolves the cart identity of a request: the authenticated user
// when a valid token was presented, otherwise the guest session header.
func identity(r *http.Request) (userID, sessionID string) {
	userID = middleware.UserIDFromContext(r.Context())
	if userID == "" {
		sessionID = r.Header.Get(sessionHeader)
	}
	return userID, sessionID
}

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a cart item.
type AddItemRequest struct {
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateItemRequest is the JSON request body for changing a line quantity.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// ApplyVoucherRequest is the JSON request body for applying a voucher.
type ApplyVoucherRequest struct {
	Code string `json:"code" validate:"required"`
}

// cartResponse pairs the cart with its derived totals so clients never
// recompute money fields.
type cartResponse struct {
	Cart   any `json:"cart"`
	Totals any `json:"totals"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, sessionID := identity(r)

	cart, err := h.service.GetCart(r.Context(), userID, sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, cartResponse{Cart: cart, Totals: cart.Totals()})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, sessionID := identity(r)

	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.AddItem(r.Context(), userID, sessionID, req.VariantID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, cartResponse{Cart: cart, Totals: cart.Totals()})
}

// UpdateItem handles PUT /api/v1/cart/items/{itemID}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, sessionID := identity(r)

	itemID, ok := httputil.ParseUUID(w, chi.URLParam(r, "itemID"))
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.UpdateItemQuantity(r.Context(), userID, sessionID, itemID.String(), req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, cartResponse{Cart: cart, Totals: cart.Totals()})
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, sessionID := identity(r)

	itemID, ok := httputil.ParseUUID(w, chi.URLParam(r, "itemID"))
	if !ok {
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), userID, sessionID, itemID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, cartResponse{Cart: cart, Totals: cart.Totals()})
}

// Clear handles DELETE /api/v1/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, sessionID := identity(r)

	if err := h.service.ClearCart(r.Context(), userID, sessionID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, nil)
}

// Merge handles POST /api/v1/cart/merge
func (h *CartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	sessionID := r.Header.Get(sessionHeader)

	cart, err := h.service.MergeGuestCart(r.Context(), userID, sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, cartResponse{Cart: cart, Totals: cart.Totals()})
}

// ApplyVoucher handles POST /api/v1/cart/voucher
func (h *CartHandler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req ApplyVoucherRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.ApplyVoucher(r.Context(), userID, req.Code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, cartResponse{Cart: cart, Totals: cart.Totals()})
}

// RemoveVoucher handles DELETE /api/v1/cart/voucher
func (h *CartHandler) RemoveVoucher(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	cart, err := h.service.RemoveVoucher(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, cartResponse{Cart: cart, Totals: cart.Totals()})
}
