package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aguasol/aguasol-backend/internal/bootstrap"
	"github.com/aguasol/aguasol-backend/pkg/metrics"
	"github.com/aguasol/aguasol-backend/pkg/outbox"
	"github.com/aguasol/aguasol-backend/pkg/outbox/registry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, "outbox-publisher", bootstrap.WithPubSub(true))
	if err != nil {
		bootstrap.Fail("outbox-publisher", "startup failed", err)
	}
	defer rt.Close()
	ctx = rt.Tag(ctx)

	events, err := registry.NewEventRegistry(rt.Config.PubSub)
	if err != nil {
		rt.Fatal(ctx, "failed to build event registry", err)
	}

	reg := prometheus.NewRegistry()
	relay, err := NewRelay(RelayParams{
		Outbox:   rt.Config.Outbox,
		Logger:   rt.Logger,
		Tx:       rt.DB,
		Store:    outbox.NewRepository(rt.DB.DB()),
		Registry: events,
		Topics: func(topic string) publisher {
			return newGCPPublisher(rt.PubSub.Publisher(topic))
		},
		Ready:   map[string]pinger{"database": rt.DB, "pubsub": rt.PubSub},
		Metrics: metrics.NewOutboxMetrics(reg),
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create outbox relay", err)
	}

	rt.ServeMetrics(ctx, reg)
	rt.Logger.Info(ctx, "starting outbox publisher")
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Fatal(ctx, "outbox publisher stopped unexpectedly", err)
	}
	rt.Logger.Info(ctx, "outbox publisher shutting down gracefully")
}
