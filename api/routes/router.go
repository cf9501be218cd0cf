package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/farmbasket-dev/farmbasket-backend/api/controllers"
	"github.com/farmbasket-dev/farmbasket-backend/api/controllers/webhooks"
	"github.com/farmbasket-dev/farmbasket-backend/api/middleware"
	"github.com/farmbasket-dev/farmbasket-backend/internal/cart"
	"github.com/farmbasket-dev/farmbasket-backend/internal/orders"
	"github.com/farmbasket-dev/farmbasket-backend/internal/payments"
	product "github.com/farmbasket-dev/farmbasket-backend/internal/products"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/config"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/redis"
)

const (
	writeRateLimit  = 30
	rateLimitWindow = time.Minute
)

type pinger interface {
	Ping(ctx context.Context) error
}

type webhookVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Logg     *logger.Logger
	JWT      config.JWTConfig
	Cart     cart.Service
	Orders   orders.Service
	Payments payments.Service
	Products product.Service

	WebhookVerifier webhookVerifier
	Dedupe          redis.IdempotencyStore
	Limiter         *redis.Client

	DB    pinger
	Redis pinger

	AllowedOrigins []string
	MetricsHandler http.Handler
}

// New assembles the chi router with the full middleware stack and route table.
func New(deps Deps) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Recoverer(deps.Logg))
	router.Use(middleware.RequestID(deps.Logg))
	router.Use(middleware.Logging(deps.Logg))
	router.Use(middleware.CORS(deps.AllowedOrigins))

	health := &controllers.HealthController{DB: deps.DB, Redis: deps.Redis, Logg: deps.Logg}
	cartCtrl := &controllers.CartController{Cart: deps.Cart, Logg: deps.Logg}
	ordersCtrl := &controllers.OrdersController{Orders: deps.Orders, Logg: deps.Logg}
	paymentsCtrl := &controllers.PaymentsController{Payments: deps.Payments, Logg: deps.Logg}
	productsCtrl := &controllers.ProductsController{Products: deps.Products, Logg: deps.Logg}
	webhookCtrl := &webhooks.RazorpayController{
		Payments: deps.Payments,
		Verifier: deps.WebhookVerifier,
		Dedupe:   deps.Dedupe,
		Logg:     deps.Logg,
	}

	router.Get("/healthz", health.Live)
	router.Get("/readyz", health.Ready)
	if deps.MetricsHandler != nil {
		router.Handle("/metrics", deps.MetricsHandler)
	} else {
		router.Handle("/metrics", promhttp.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		// Webhooks authenticate by signature, not bearer token.
		r.Post("/webhooks/razorpay", webhookCtrl.Handle)

		// Catalog reads are public.
		r.Get("/products", productsCtrl.List)
		r.Get("/products/{productID}", productsCtrl.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(deps.JWT, deps.Logg))
			if deps.Limiter != nil {
				r.Use(middleware.RateLimit(deps.Limiter, deps.Logg, "api", writeRateLimit, rateLimitWindow))
			}

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartCtrl.Get)
				r.Post("/items", cartCtrl.AddItem)
				r.Patch("/items/{productID}", cartCtrl.UpdateItem)
				r.Delete("/items/{productID}", cartCtrl.RemoveItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordersCtrl.Checkout)
				r.Get("/", ordersCtrl.List)
				r.Get("/{orderID}", ordersCtrl.Get)
				r.Post("/{orderID}/cancel", ordersCtrl.Cancel)
				r.With(middleware.RequireRole(deps.Logg, enums.RoleFarmer, enums.RoleAdmin)).
					Patch("/{orderID}/status", ordersCtrl.UpdateStatus)
			})

			r.Route("/products", func(r chi.Router) {
				r.Use(middleware.RequireRole(deps.Logg, enums.RoleFarmer, enums.RoleAdmin))
				r.Post("/", productsCtrl.Create)
				r.Patch("/{productID}", productsCtrl.Update)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/", paymentsCtrl.CreateIntent)
				r.Post("/verify", paymentsCtrl.Verify)
				r.Get("/order/{orderID}", paymentsCtrl.GetForOrder)
			})
		})
	})

	return router
}
