package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aguasol/aguasol-backend/api/controllers"
	"github.com/aguasol/aguasol-backend/api/routes"
	"github.com/aguasol/aguasol-backend/internal/admins"
	"github.com/aguasol/aguasol-backend/internal/auth"
	"github.com/aguasol/aguasol-backend/internal/bootstrap"
	"github.com/aguasol/aguasol-backend/internal/customers"
	"github.com/aguasol/aguasol-backend/internal/invoices"
	"github.com/aguasol/aguasol-backend/internal/notifications"
	"github.com/aguasol/aguasol-backend/internal/pricing"
	"github.com/aguasol/aguasol-backend/internal/products"
	"github.com/aguasol/aguasol-backend/pkg/metrics"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, "api", bootstrap.WithRedis(), bootstrap.WithPubSub(false))
	if err != nil {
		bootstrap.Fail("api", "startup failed", err)
	}
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger
	ctx = rt.Tag(ctx)

	router, err := buildRouter(rt)
	if err != nil {
		rt.Fatal(ctx, "failed to wire api", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx = logg.WithField(ctx, "addr", server.Addr)
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			rt.Fatal(ctx, "api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server stopped")
	}
}

func buildRouter(rt *bootstrap.Runtime) (http.Handler, error) {
	cfg, gdb := rt.Config, rt.DB.DB()

	domain, err := bootstrap.BuildDomain(rt.DB, cfg.Ordering, rt.Logger)
	if err != nil {
		return nil, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		CustomerRepo:   domain.Customers,
		AdminRepo:      admins.NewRepository(gdb),
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             rt.DB,
		Customers:      domain.Customers,
		PasswordConfig: cfg.Password,
		Login:          authService,
	})
	if err != nil {
		return nil, err
	}
	productService, err := products.NewService(domain.Products)
	if err != nil {
		return nil, err
	}
	pricingService, err := pricing.NewService(domain.Products)
	if err != nil {
		return nil, err
	}
	customerService, err := customers.NewService(domain.Customers, cfg.Password)
	if err != nil {
		return nil, err
	}
	invoiceService, err := invoices.NewService(domain.Orders, invoices.NewRenderer(cfg.Invoice))
	if err != nil {
		return nil, err
	}
	notificationService, err := notifications.NewService(notifications.NewRepository(gdb))
	if err != nil {
		return nil, err
	}

	readiness := []controllers.Dependency{
		{Name: "db", Pinger: rt.DB},
		{Name: "redis", Pinger: rt.Redis},
	}
	if rt.PubSub != nil {
		readiness = append(readiness, controllers.Dependency{Name: "pubsub", Pinger: rt.PubSub})
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        rt.Logger,
		Readiness:     readiness,
		Idempotency:   rt.Redis,
		RateLimiter:   rt.Redis,
		Metrics:       metrics.NewHTTPMetrics(registry),
		Auth:          authService,
		Register:      registerService,
		Products:      productService,
		Pricing:       pricingService,
		Customers:     customerService,
		Orders:        domain.Orders,
		Vouchers:      domain.Vouchers,
		Subscriptions: domain.Subscriptions,
		Invoices:      invoiceService,
		Notifications: notificationService,
	}), nil
}
