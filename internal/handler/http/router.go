package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Fblink88/appburguer-backend/internal/client"
	"github.com/Fblink88/appburguer-backend/internal/event"
	"github.com/Fblink88/appburguer-backend/internal/repository"
	"github.com/Fblink88/appburguer-backend/internal/service"
	"github.com/Fblink88/appburguer-backend/pkg/health"
	"github.com/Fblink88/appburguer-backend/pkg/middleware"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	Cart      *service.CartService
	Checkout  *service.CheckoutService
	Outcome   *service.OutcomeService
	Badges    repository.BadgeRepository
	Notifier  *event.Notifier
	Orders    *client.OrderClient
	Customers *client.CustomerClient
	Health    *health.Handler
	Logger    *slog.Logger
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogger(deps.Logger))

	// Health check endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	cartHandler := NewCartHandler(deps.Cart, deps.Badges, deps.Notifier, deps.Logger)
	checkoutHandler := NewCheckoutHandler(deps.Checkout, deps.Logger)
	outcomeHandler := NewOutcomeHandler(deps.Outcome, deps.Orders, deps.Customers, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(CustomerRefFromHeader)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Get("/badge", cartHandler.GetBadge)
			r.Get("/badge/stream", cartHandler.BadgeStream)

			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productId}", cartHandler.SetQuantity)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/handoff", checkoutHandler.Handoff)
			r.Post("/", checkoutHandler.Enter)

			r.Get("/{sessionId}", checkoutHandler.GetSession)
			r.Patch("/{sessionId}", checkoutHandler.UpdateSelections)
			r.Post("/{sessionId}/addresses", checkoutHandler.AddAddress)
			r.Post("/{sessionId}/submit", checkoutHandler.Submit)
		})

		r.Route("/payment", func(r chi.Router) {
			r.Get("/success", outcomeHandler.Success)
			r.Get("/failure", outcomeHandler.Failure)
			r.Get("/pending", outcomeHandler.Pending)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", outcomeHandler.ListOrders)
			r.Get("/{orderId}", outcomeHandler.GetOrder)
		})
	})

	return r
}
