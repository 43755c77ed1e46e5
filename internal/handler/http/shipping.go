package http

import (
	"log/slog"
	"net/http"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/service"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/httputil"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/middleware"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/validator"
)

// ShippingHandler handles HTTP requests for shipping rate quotes.
type ShippingHandler struct {
	service *service.ShippingService
	logger  *slog.Logger
}

// NewShippingHandler creates a new shipping HTTP handler.
func NewShippingHandler(svc *service.ShippingService, logger *slog.Logger) *ShippingHandler {
	return &ShippingHandler{
		service: svc,
		logger:  logger,
	}
}

// RatesRequest is the JSON request body for quoting shipping rates.
type RatesRequest struct {
	AddressID string `json:"address_id" validate:"required,uuid"`
}

// Rates handles POST /api/v1/shipping/rates
func (h *ShippingHandler) Rates(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req RatesRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	quotes, err := h.service.QuoteForCart(r.Context(), userID, req.AddressID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, quotes)
}
