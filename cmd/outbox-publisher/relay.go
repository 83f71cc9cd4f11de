package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/logger"
	"github.com/aguasol/aguasol-backend/pkg/metrics"
	"github.com/aguasol/aguasol-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	maxBackoff     = 10 * time.Second
	jitterWindow   = 250 * time.Millisecond
)

type txRunner interface {
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pinger interface {
	Ping(context.Context) error
}

// store is the slice of outbox.Repository the relay drives.
type store interface {
	ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID, at time.Time) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error
	DeadLetter(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, maxAttempts int) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// topicPublisher returns the publisher for a topic, or nil when the topic is
// not configured.
type topicPublisher func(topic string) publisher

type RelayParams struct {
	Outbox   config.OutboxConfig
	Logger   *logger.Logger
	Tx       txRunner
	Store    store
	Registry resolver
	Topics   topicPublisher
	// Ready lists the dependencies probed once before the first batch.
	Ready   map[string]pinger
	Metrics *metrics.OutboxMetrics
}

// Relay drains outbox_events onto Pub/Sub. Each batch runs inside one
// transaction holding row locks, so several replicas can share the table
// without double sending.
type Relay struct {
	logg        *logger.Logger
	tx          txRunner
	store       store
	registry    resolver
	topics      topicPublisher
	ready       map[string]pinger
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	poll        time.Duration
	now         func() time.Time
}

func NewRelay(p RelayParams) (*Relay, error) {
	var missing []string
	for name, ok := range map[string]bool{
		"logger":      p.Logger != nil,
		"transaction": p.Tx != nil,
		"store":       p.Store != nil,
		"registry":    p.Registry != nil,
		"topics":      p.Topics != nil,
	} {
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("outbox relay: missing %v", missing)
	}
	r := &Relay{
		logg:        p.Logger,
		tx:          p.Tx,
		store:       p.Store,
		registry:    p.Registry,
		topics:      p.Topics,
		ready:       p.Ready,
		metrics:     p.Metrics,
		batchSize:   p.Outbox.BatchSize,
		maxAttempts: p.Outbox.MaxAttempts,
		poll:        p.Outbox.PollInterval(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	if r.batchSize <= 0 {
		r.batchSize = 50
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = 10
	}
	return r, nil
}

// Run polls until ctx is canceled. A non-empty batch is followed at once by
// the next; errors back off exponentially up to maxBackoff.
func (r *Relay) Run(ctx context.Context) error {
	for name, dep := range r.ready {
		if err := dep.Ping(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	backoff := r.poll
	for ctx.Err() == nil {
		busy, err := r.drain(ctx)
		wait := r.poll
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			backoff = min(backoff*2, maxBackoff)
			wait = backoff
		case busy:
			backoff = r.poll
			continue
		default:
			backoff = r.poll
		}

		select {
		case <-ctx.Done():
		case <-time.After(wait + rand.N(jitterWindow)):
		}
	}
	return ctx.Err()
}

// publish sends msg and waits for the broker ack.
func (r *Relay) publish(ctx context.Context, topic string, msg *gcppubsub.Message) error {
	pub := r.topics(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	res := pub.Publish(ctx, msg)
	if res == nil {
		return registry.NewNonRetryableError(errors.New("publisher returned no result"))
	}
	_, err := res.Get(ctx)
	return err
}
