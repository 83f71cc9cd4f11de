package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aguasol/aguasol-backend/internal/bootstrap"
	"github.com/aguasol/aguasol-backend/internal/notifications"
	"github.com/aguasol/aguasol-backend/pkg/outbox/idempotency"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, "worker", bootstrap.WithRedis(), bootstrap.WithPubSub(true))
	if err != nil {
		bootstrap.Fail("worker", "startup failed", err)
	}
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger
	ctx = rt.Tag(ctx)

	dedupe, err := idempotency.NewManager(rt.Redis, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		rt.Fatal(ctx, "failed to create idempotency manager", err)
	}
	inbox, err := notifications.NewConsumer(notifications.ConsumerParams{
		Repo:           notifications.NewRepository(rt.DB.DB()),
		Subscription:   rt.PubSub.NotificationSubscription(),
		Idempotency:    dedupe,
		Logger:         logg,
		OrderPrefix:    cfg.Ordering.OrderNumberPrefix,
		CurrencySymbol: cfg.Invoice.CurrencySymbol,
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create notification consumer", err)
	}

	service, err := NewService(ServiceParams{
		Logger: logg,
		Checks: []Check{
			{Name: "database", Pinger: rt.DB},
			{Name: "redis", Pinger: rt.Redis},
			{Name: "pubsub", Pinger: rt.PubSub},
		},
		Consumers: []Consumer{{Name: "notifications", Run: inbox}},
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create worker service", err)
	}

	logg.Info(ctx, "starting worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Fatal(ctx, "worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}
