package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aguasol/aguasol-backend/api/controllers"
	ordercontrollers "github.com/aguasol/aguasol-backend/api/controllers/orders"
	"github.com/aguasol/aguasol-backend/api/middleware"
	"github.com/aguasol/aguasol-backend/internal/auth"
	"github.com/aguasol/aguasol-backend/internal/customers"
	"github.com/aguasol/aguasol-backend/internal/invoices"
	"github.com/aguasol/aguasol-backend/internal/notifications"
	"github.com/aguasol/aguasol-backend/internal/orders"
	"github.com/aguasol/aguasol-backend/internal/pricing"
	"github.com/aguasol/aguasol-backend/internal/products"
	"github.com/aguasol/aguasol-backend/internal/subscriptions"
	"github.com/aguasol/aguasol-backend/internal/vouchers"
	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/logger"
	"github.com/aguasol/aguasol-backend/pkg/metrics"
	pkgredis "github.com/aguasol/aguasol-backend/pkg/redis"
)

type rateLimiter interface {
	CountHit(ctx context.Context, scope string, window time.Duration) (int64, error)
}

// Deps carries everything the HTTP surface needs. Nil services answer with
// an internal error; nil stores disable idempotency and throttling.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	Readiness   []controllers.Dependency
	Idempotency pkgredis.MarkerStore
	RateLimiter rateLimiter
	Metrics     *metrics.HTTPMetrics

	Auth          auth.Service
	Register      auth.RegisterService
	Products      products.Service
	Pricing       pricing.Service
	Customers     customers.Service
	Orders        orders.Service
	Vouchers      vouchers.Service
	Subscriptions subscriptions.Service
	Invoices      invoices.Service
	Notifications notifications.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	loginPolicy := middleware.NewRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginSubjectLimit,
		"phone",
	)
	adminLoginPolicy := middleware.NewRateLimitPolicy(
		"admin-login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginSubjectLimit,
		"email",
	)
	registerPolicy := middleware.NewRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterSubjectLimit,
		"phone",
	)
	trackingPolicy := middleware.NewRateLimitPolicy(
		"tracking",
		cfg.Ordering.TrackingWindow,
		cfg.Ordering.TrackingLimit,
		cfg.Ordering.TrackingLimit,
		"phone",
	)
	throttle := func(policy middleware.RateLimitPolicy) func(http.Handler) http.Handler {
		return middleware.RateLimit(policy, deps.RateLimiter, logg)
	}
	idempotent := middleware.Idempotency(deps.Idempotency, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness...))
	})

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))

		r.Get("/products", controllers.ListProducts(deps.Products, logg))
		r.Get("/products/{productId}", controllers.GetProduct(deps.Products, logg))
		r.Post("/pricing/calculate", controllers.CalculatePrice(deps.Pricing, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(idempotent).Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.With(throttle(trackingPolicy)).Get("/track", ordercontrollers.Track(deps.Orders, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(throttle(loginPolicy)).Post("/login", controllers.CustomerLogin(deps.Auth, logg))
			r.With(throttle(registerPolicy), idempotent).Post("/register", controllers.CustomerRegister(deps.Register, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.RoleCustomer, logg))
		r.Use(idempotent)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Get("/{orderId}/invoice", controllers.OrderInvoice(deps.Invoices, logg))
		})
		r.Get("/vouchers", controllers.ListVouchers(deps.Vouchers, logg))
		r.Get("/subscriptions", controllers.ListSubscriptions(deps.Subscriptions, logg))
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	r.With(throttle(adminLoginPolicy)).Post("/api/admin/v1/auth/login", controllers.AdminLogin(deps.Auth, logg))

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
		r.Use(idempotent)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Products, logg))
			r.Post("/", controllers.AdminCreateProduct(deps.Products, logg))
			r.Get("/{productId}", controllers.GetProduct(deps.Products, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(deps.Products, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(deps.Products, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/summary", ordercontrollers.Summary(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Post("/{orderId}/status", ordercontrollers.ChangeStatus(deps.Orders, logg))
			r.Get("/{orderId}/invoice", controllers.OrderInvoice(deps.Invoices, logg))
		})
		r.Post("/invoices/render", controllers.AdminRenderInvoice(deps.Invoices, logg))

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.AdminListCustomers(deps.Customers, logg))
			r.Post("/", controllers.AdminCreateCustomer(deps.Customers, logg))
			r.Get("/{customerId}", controllers.AdminGetCustomer(deps.Customers, logg))
			r.Patch("/{customerId}", controllers.AdminUpdateCustomer(deps.Customers, logg))
		})

		r.Route("/vouchers", func(r chi.Router) {
			r.Get("/", controllers.ListVouchers(deps.Vouchers, logg))
			r.Post("/settle", controllers.AdminSettleVouchers(deps.Vouchers, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", controllers.ListSubscriptions(deps.Subscriptions, logg))
			r.Post("/", controllers.AdminCreateSubscription(deps.Subscriptions, logg))
			r.Get("/{subscriptionId}", controllers.AdminGetSubscription(deps.Subscriptions, logg))
			r.Post("/{subscriptionId}/{action}", controllers.AdminSubscriptionAction(deps.Subscriptions, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	return r
}
