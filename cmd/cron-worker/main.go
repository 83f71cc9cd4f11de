package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aguasol/aguasol-backend/internal/bootstrap"
	"github.com/aguasol/aguasol-backend/internal/cron"
	"github.com/aguasol/aguasol-backend/internal/notifications"
	"github.com/aguasol/aguasol-backend/pkg/instance"
	"github.com/aguasol/aguasol-backend/pkg/metrics"
	"github.com/aguasol/aguasol-backend/pkg/outbox"
)

func main() {
	once := flag.Bool("once", false, "run the selected jobs a single time and exit")
	only := flag.String("job", "", "comma separated job names to run (default: all)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, "cron-worker", bootstrap.WithRedis())
	if err != nil {
		bootstrap.Fail("cron-worker", "startup failed", err)
	}
	defer rt.Close()
	ctx = rt.Tag(ctx)

	jobs, err := buildJobs(rt)
	if err != nil {
		rt.Fatal(ctx, "failed to register cron jobs", err)
	}
	if *only != "" {
		if jobs, err = jobs.Only(strings.Split(*only, ",")...); err != nil {
			rt.Fatal(ctx, "invalid -job selection", err)
		}
	}

	lock, err := cron.NewRedisLock(rt.Redis, lockKey(rt.Config.App.Env), instance.GetID(), rt.Config.Cron.LockTTL)
	if err != nil {
		rt.Fatal(ctx, "failed to create cron lock", err)
	}

	reg := prometheus.NewRegistry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   rt.Logger,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: rt.Config.Cron.Interval,
		// A job outliving the lock could overlap the next holder's cycle.
		JobTimeout: rt.Config.Cron.LockTTL,
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create cron service", err)
	}
	ctx = rt.Logger.WithField(ctx, "jobs", jobs.Names())

	if *once {
		rt.Logger.Info(ctx, "running cron jobs once")
		if err := service.RunOnce(ctx); err != nil {
			rt.Fatal(ctx, "cron run failed", err)
		}
		return
	}

	rt.ServeMetrics(ctx, reg)
	rt.Logger.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Fatal(ctx, "cron worker stopped unexpectedly", err)
	}
	rt.Logger.Info(ctx, "cron worker shutting down gracefully")
}

func buildJobs(rt *bootstrap.Runtime) (*cron.Registry, error) {
	logg, gdb := rt.Logger, rt.DB.DB()
	domain, err := bootstrap.BuildDomain(rt.DB, rt.Config.Ordering, logg)
	if err != nil {
		return nil, err
	}

	expiry, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{Logger: logg, Orders: domain.Orders})
	if err != nil {
		return nil, err
	}
	renewal, err := cron.NewSubscriptionRenewalJob(cron.SubscriptionRenewalJobParams{Logger: logg, Subscriptions: domain.Subscriptions})
	if err != nil {
		return nil, err
	}
	cronCfg := rt.Config.Cron
	deadLetters := outbox.NewDLQRepository(gdb)
	retention, err := cron.NewPurgeJob("outbox-retention", logg,
		cron.Purge{Target: "outbox_events", Retain: cronCfg.OutboxRetention, Delete: domain.OutboxRepo.DeletePublishedBefore},
		cron.Purge{Target: "outbox_dlq", Retain: cronCfg.DeadLetterRetention, Delete: deadLetters.DeleteFailedBefore},
	)
	if err != nil {
		return nil, err
	}
	// Unread notifications stay until someone reads them.
	inbox := notifications.NewRepository(gdb)
	cleanup, err := cron.NewPurgeJob("notification-cleanup", logg,
		cron.Purge{Target: "notifications", Retain: cronCfg.NotificationRetention, Delete: inbox.DeleteReadBefore},
	)
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(expiry, renewal, retention, cleanup)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("aguasol:cron-worker:%s", env)
}
