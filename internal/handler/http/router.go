package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/service"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/health"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/httputil"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/middleware"
)

// RouterConfig bundles the non-service inputs the router needs.
type RouterConfig struct {
	TokenValidator middleware.TokenValidator
	CORS           middleware.CORSConfig
	PprofCIDRs     []string
}

// NewRouter creates a chi router with all commerce-core routes registered.
func NewRouter(
	carts *service.CartService,
	shipping *service.ShippingService,
	orders *service.OrderService,
	payments *service.PaymentService,
	syncs *service.SyncService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("commerce"))
	r.Use(middleware.Tracing("commerce"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "route not found",
		})
	})

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	cartHandler := NewCartHandler(carts, logger)
	shippingHandler := NewShippingHandler(shipping, logger)
	orderHandler := NewOrderHandler(orders, payments, logger)
	webhookHandler := NewWebhookHandler(payments, logger)
	adminHandler := NewAdminHandler(orders, syncs, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Cart endpoints work for guests (X-Session-ID) and signed-in users.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.TokenValidator))

			r.Get("/cart", cartHandler.GetCart)
			r.Delete("/cart", cartHandler.Clear)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Put("/cart/items/{itemID}", cartHandler.UpdateItem)
			r.Delete("/cart/items/{itemID}", cartHandler.RemoveItem)
		})

		// Everything past the cart requires an authenticated user.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.TokenValidator))

			r.Post("/cart/merge", cartHandler.Merge)
			r.Post("/cart/voucher", cartHandler.ApplyVoucher)
			r.Delete("/cart/voucher", cartHandler.RemoveVoucher)

			r.Post("/shipping/rates", shippingHandler.Rates)

			r.Post("/checkout/validate", orderHandler.ValidateCheckout)
			r.Post("/orders", orderHandler.CreateOrder)
			r.Get("/orders", orderHandler.ListOrders)
			r.Get("/orders/{orderNumber}", orderHandler.GetOrder)
			r.Post("/orders/{orderNumber}/cancel", orderHandler.CancelOrder)
			r.Get("/orders/{orderNumber}/payments", orderHandler.ListPayments)
			r.Post("/orders/{orderNumber}/payment-session", orderHandler.CreatePaymentSession)
		})

		// Gateway callback authenticates with its own HMAC signature.
		r.Post("/payments/webhook", webhookHandler.HandleWebhook)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.TokenValidator))
			r.Use(middleware.RequireRole("admin"))

			r.Get("/orders", adminHandler.ListOrders)
			r.Put("/orders/{orderNumber}/status", adminHandler.UpdateOrderStatus)
			r.Put("/orders/{orderNumber}/payment-status", adminHandler.UpdatePaymentStatus)
			r.Get("/sync-logs", adminHandler.ListSyncLogs)
		})
	})

	return r
}
