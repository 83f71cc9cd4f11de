package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/outbox"
	"github.com/aguasol/aguasol-backend/pkg/outbox/payloads"
)

// aggregates fixes which aggregate each event type may be emitted for.
var aggregates = map[enums.OutboxEventType]enums.OutboxAggregateType{
	enums.EventOrderCreated:        enums.AggregateOrder,
	enums.EventOrderStatusChanged:  enums.AggregateOrder,
	enums.EventOrderExpired:        enums.AggregateOrder,
	enums.EventSubscriptionRenewed: enums.AggregateSubscription,
	enums.EventVouchersSettled:     enums.AggregateVoucher,
}

// PayloadDecoders returns the decoders for every payload version in use.
// The publisher validates rows with it and consumers decode messages with it.
func PayloadDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	RegisterJSON[payloads.OrderCreatedEvent](reg, enums.EventOrderCreated, 1)
	RegisterJSON[payloads.OrderStatusChangedEvent](reg, enums.EventOrderStatusChanged, 1)
	RegisterJSON[payloads.OrderExpiredEvent](reg, enums.EventOrderExpired, 1)
	RegisterJSON[payloads.SubscriptionRenewedEvent](reg, enums.EventSubscriptionRenewed, 1)
	RegisterJSON[payloads.VouchersSettledEvent](reg, enums.EventVouchersSettled, 1)
	return reg
}

// EventDescriptor is where an event type is published.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row that passed validation.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry validates outbox rows before they are published. Every event
// currently goes to the domain topic; consumers filter on the event_type
// attribute.
type EventRegistry struct {
	topic    string
	decoders *DecoderRegistry
}

// NonRetryableError marks a row that will fail the same way on every attempt.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, errors.New("domain topic is required")
	}
	return &EventRegistry{topic: cfg.DomainTopic, decoders: PayloadDecoders()}, nil
}

// Descriptor reports where eventType is published.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	aggregate, ok := aggregates[eventType]
	if !ok {
		return EventDescriptor{}, false
	}
	return EventDescriptor{EventType: eventType, AggregateType: aggregate, Topic: r.topic}, true
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.Descriptor(event.EventType)
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case desc.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	env, _, err := outbox.ParseEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	payload, err := r.decoders.Decode(event.EventType, env.Version, env.Data)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
