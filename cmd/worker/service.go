package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/aguasol/aguasol-backend/pkg/logger"
)

const (
	heartbeatInterval = time.Minute
	readyAttempts     = 5
	readyBackoff      = 2 * time.Second
)

type pinger interface {
	Ping(ctx context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

// Check is a dependency probed before any consumer starts.
type Check struct {
	Name   string
	Pinger pinger
}

// Consumer is a long running subscription loop.
type Consumer struct {
	Name string
	Run  consumer
}

type ServiceParams struct {
	Logger    *logger.Logger
	Checks    []Check
	Consumers []Consumer
	// Backoff between readiness attempts; zero uses readyBackoff.
	Backoff time.Duration
}

// Service supervises the Pub/Sub consumers of the worker process. The first
// consumer to stop ends the process so the orchestrator can restart it.
type Service struct {
	logg      *logger.Logger
	checks    []Check
	consumers []Consumer
	backoff   time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	var errs error
	for _, c := range params.Checks {
		if c.Pinger == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s client is required", c.Name))
		}
	}
	for _, c := range params.Consumers {
		if c.Run == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s consumer is nil", c.Name))
		}
	}
	if errs != nil {
		return nil, errs
	}
	backoff := params.Backoff
	if backoff <= 0 {
		backoff = readyBackoff
	}
	return &Service{logg: params.Logger, checks: params.Checks, consumers: params.Consumers, backoff: backoff}, nil
}

// waitReady pings every dependency, retrying the failing ones a few times
// so a worker started alongside its database does not crash loop.
func (s *Service) waitReady(ctx context.Context) error {
	pending := s.checks
	for attempt := 1; ; attempt++ {
		var failed []Check
		var last error
		for _, c := range pending {
			if err := c.Pinger.Ping(ctx); err != nil {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"dependency": c.Name, "attempt": attempt}), "dependency not ready")
				failed = append(failed, c)
				last = fmt.Errorf("%s ping failed: %w", c.Name, err)
			}
		}
		if len(failed) == 0 {
			s.logg.Info(ctx, "worker dependencies ready")
			return nil
		}
		if attempt == readyAttempts {
			return last
		}
		pending = failed
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}
}

type exit struct {
	name string
	err  error
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.waitReady(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	exits := make(chan exit, len(s.consumers))
	for _, c := range s.consumers {
		go func() {
			exits <- exit{name: c.Name, err: c.Run.Run(s.logg.WithField(ctx, "consumer", c.Name))}
		}()
	}

	started := time.Now()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-exits:
			if e.err == nil || errors.Is(e.err, context.Canceled) {
				s.logg.Info(s.logg.WithField(ctx, "consumer", e.name), "consumer finished")
				return e.err
			}
			return fmt.Errorf("%s consumer: %w", e.name, e.err)
		case <-ticker.C:
			s.logg.Debug(s.logg.WithField(ctx, "uptime", time.Since(started).Round(time.Second).String()), "worker heartbeat")
		}
	}
}
