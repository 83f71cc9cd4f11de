package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
)

// ErrMalformedEnvelope is returned for stored or delivered payloads that do
// not carry a usable envelope.
var ErrMalformedEnvelope = errors.New("malformed outbox envelope")

// ActorRef identifies who produced the event. System jobs leave it nil.
type ActorRef struct {
	UserID uuid.UUID  `json:"userId"`
	Role   enums.Role `json:"role,omitempty"`
}

// PayloadEnvelope wraps every event payload, both in outbox_events.payload
// and in the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// ParseEnvelope decodes and checks an envelope. A missing version reads as 1.
func ParseEnvelope(raw []byte) (PayloadEnvelope, uuid.UUID, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, uuid.Nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	id, err := uuid.Parse(env.EventID)
	if err != nil || id == uuid.Nil {
		return env, uuid.Nil, fmt.Errorf("%w: event id %q", ErrMalformedEnvelope, env.EventID)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, id, fmt.Errorf("%w: empty data", ErrMalformedEnvelope)
	}
	if env.Version == 0 {
		env.Version = 1
	}
	return env, id, nil
}

// DomainEvent is an event before it is enveloped and queued.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

// row envelopes the event as an outbox row. The row id doubles as the
// envelope event id so dead-letter entries and consumer claims share a key.
func (e DomainEvent) row(now time.Time) (models.OutboxEvent, error) {
	switch {
	case !e.EventType.IsValid() || !e.AggregateType.IsValid():
		return models.OutboxEvent{}, fmt.Errorf("unsupported outbox event %s/%s", e.EventType, e.AggregateType)
	case e.AggregateID == uuid.Nil:
		return models.OutboxEvent{}, fmt.Errorf("outbox event %s has no aggregate id", e.EventType)
	}
	data, err := json.Marshal(e.Data)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("encode %s payload: %w", e.EventType, err)
	}

	id := uuid.New()
	env := PayloadEnvelope{
		Version:    max(e.Version, 1),
		EventID:    id.String(),
		OccurredAt: e.OccurredAt,
		Actor:      e.Actor,
		Data:       data,
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = now
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return models.OutboxEvent{}, err
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		Payload:       payload,
	}, nil
}
