// Package bootstrap starts the shared infrastructure every binary needs:
// environment, config, logger, database, and optionally Redis and Pub/Sub.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/db"
	"github.com/aguasol/aguasol-backend/pkg/instance"
	"github.com/aguasol/aguasol-backend/pkg/logger"
	"github.com/aguasol/aguasol-backend/pkg/migrate"
	"github.com/aguasol/aguasol-backend/pkg/pubsub"
	"github.com/aguasol/aguasol-backend/pkg/redis"
)

type pubsubMode int

const (
	pubsubOff pubsubMode = iota
	pubsubIfConfigured
	pubsubRequired
)

type options struct {
	redis  bool
	pubsub pubsubMode
}

type Option func(*options)

// WithRedis connects Redis; startup fails when it is unreachable.
func WithRedis() Option { return func(o *options) { o.redis = true } }

// WithPubSub connects Pub/Sub. When required is false the client is only
// created if a GCP project is configured.
func WithPubSub(required bool) Option {
	return func(o *options) {
		o.pubsub = pubsubIfConfigured
		if required {
			o.pubsub = pubsubRequired
		}
	}
}

// Runtime holds the connected clients. Fields for services that were not
// requested stay nil.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client
	PubSub *pubsub.Client

	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// Start loads configuration and connects dependencies in order. On failure
// everything opened so far is closed again.
func Start(ctx context.Context, kind string, opts ...Option) (rt *Runtime, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logg := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		logg.Debug(ctx, ".env file not loaded, using process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = kind

	rt = &Runtime{
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()

	if rt.DB, err = db.New(ctx, cfg.DB, rt.Logger); err != nil {
		return rt, fmt.Errorf("connect database: %w", err)
	}
	rt.onClose("database", rt.DB.Close)

	if err = migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		return rt, fmt.Errorf("dev migrations: %w", err)
	}

	if o.redis {
		if rt.Redis, err = redis.New(ctx, cfg.Redis, rt.Logger); err != nil {
			return rt, fmt.Errorf("connect redis: %w", err)
		}
		rt.onClose("redis", rt.Redis.Close)
	}

	if o.pubsub == pubsubRequired || (o.pubsub == pubsubIfConfigured && cfg.GCP.ProjectID != "") {
		if rt.PubSub, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, rt.Logger); err != nil {
			return rt, fmt.Errorf("connect pubsub: %w", err)
		}
		rt.onClose("pubsub", rt.PubSub.Close)
	}
	return rt, nil
}

func (r *Runtime) onClose(name string, fn func() error) {
	r.closers = append(r.closers, closer{name: name, fn: fn})
}

// Close releases clients in reverse start order.
func (r *Runtime) Close() {
	var errs error
	for i := len(r.closers) - 1; i >= 0; i-- {
		c := r.closers[i]
		if err := c.fn(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	r.closers = nil
	if errs != nil {
		r.Logger.Error(context.Background(), "shutdown incomplete", errs)
	}
}

// Tag adds the fields every log line of a process carries.
func (r *Runtime) Tag(ctx context.Context) context.Context {
	return r.Logger.WithFields(ctx, map[string]any{
		"env":          r.Config.App.Env,
		"service_kind": r.Config.Service.Kind,
		"instance":     instance.GetID(),
	})
}

// Fatal logs err and exits with status 1.
func (r *Runtime) Fatal(ctx context.Context, msg string, err error) {
	r.Logger.Error(ctx, msg, err)
	r.Close()
	os.Exit(1)
}

// ServeMetrics exposes reg on AGUASOL_METRICS_ADDR until ctx ends. It is a
// no-op when no address is configured.
func (r *Runtime) ServeMetrics(ctx context.Context, reg *prometheus.Registry) {
	addr := r.Config.App.MetricsAddr
	if addr == "" || reg == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		r.Logger.Info(r.Logger.WithField(ctx, "addr", addr), "metrics listener started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.Logger.Error(ctx, "metrics listener stopped", err)
		}
	}()
}

// Fail is for errors raised before a Runtime exists.
func Fail(kind, msg string, err error) {
	logger.New(logger.Options{ServiceName: kind}).Error(context.Background(), msg, err)
	os.Exit(1)
}
