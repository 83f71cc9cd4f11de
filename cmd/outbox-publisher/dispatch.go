package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/outbox/registry"
)

type verdict int

const (
	sent verdict = iota
	retry
	dead
	held
)

// attempt is what happened to one outbox row in a batch.
type attempt struct {
	verdict verdict
	topic   string
	reason  enums.OutboxDLQErrorReason
	err     error
}

// drain publishes one locked batch and reports whether it held any rows.
// Rows sharing an aggregate go out in created order: once a row for an order
// fails, later rows for that order wait for the next batch so subscribers
// never see a status change before the order itself.
func (r *Relay) drain(ctx context.Context) (bool, error) {
	var claimed int
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.store.ClaimBatch(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		claimed = len(events)

		stalled := make(map[uuid.UUID]struct{})
		for _, ev := range events {
			a := attempt{verdict: held}
			if _, blocked := stalled[ev.AggregateID]; !blocked {
				a = r.attempt(ctx, ev)
			}
			if a.verdict != sent {
				stalled[ev.AggregateID] = struct{}{}
			}
			if err := r.settle(ctx, tx, ev, a); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed > 0, err
}

func (r *Relay) attempt(ctx context.Context, ev models.OutboxEvent) attempt {
	resolved, err := r.registry.Resolve(ev)
	if err != nil {
		return attempt{verdict: dead, reason: enums.OutboxDLQReasonNonRetryable, err: err}
	}
	topic := resolved.Descriptor.Topic

	err = r.publish(ctx, topic, message(ev, resolved))
	var permanent registry.NonRetryableError
	switch {
	case err == nil:
		return attempt{verdict: sent, topic: topic}
	case errors.As(err, &permanent):
		return attempt{verdict: dead, topic: topic, reason: enums.OutboxDLQReasonNonRetryable, err: err}
	case ev.AttemptCount+1 >= r.maxAttempts:
		return attempt{verdict: dead, topic: topic, reason: enums.OutboxDLQReasonMaxAttempts, err: fmt.Errorf("gave up after %d attempts: %w", ev.AttemptCount+1, err)}
	}
	return attempt{verdict: retry, topic: topic, err: err}
}

// message forwards the stored envelope untouched, keyed by aggregate so an
// ordered subscription sees one order's events in sequence.
func message(ev models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        ev.Payload,
		OrderingKey: fmt.Sprintf("%s:%s", ev.AggregateType, ev.AggregateID),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(ev.EventType),
			"version":        strconv.Itoa(resolved.Envelope.Version),
			"aggregate_type": string(ev.AggregateType),
			"aggregate_id":   ev.AggregateID.String(),
			"created_at":     ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, ev models.OutboxEvent, a attempt) error {
	kind := string(ev.EventType)
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":    ev.ID.String(),
		"event_type":   kind,
		"aggregate_id": ev.AggregateID.String(),
		"attempts":     ev.AttemptCount,
		"topic":        a.topic,
	})

	switch a.verdict {
	case sent:
		if err := r.store.MarkPublished(tx, ev.ID, r.now()); err != nil {
			return fmt.Errorf("mark %s published: %w", ev.ID, err)
		}
		r.metrics.IncPublished(kind)
		r.logg.Info(ctx, "outbox event published")
	case retry:
		if err := r.store.RecordFailure(tx, ev.ID, a.err); err != nil {
			return fmt.Errorf("record %s failure: %w", ev.ID, err)
		}
		r.metrics.IncFailed(kind)
		r.logg.Warn(r.logg.WithField(ctx, "error", a.err.Error()), "outbox publish failed, will retry")
	case dead:
		if err := r.store.DeadLetter(tx, ev, a.reason, a.err, r.maxAttempts); err != nil {
			return fmt.Errorf("dead-letter %s: %w", ev.ID, err)
		}
		r.metrics.IncDeadLettered(kind, string(a.reason))
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{"reason": string(a.reason), "error": a.err.Error()}), "outbox event dead-lettered")
	case held:
		r.logg.Debug(ctx, "outbox event held behind failed aggregate")
	}
	return nil
}
