// Package idempotency guards Pub/Sub consumers against redelivered events.
//
// A consumer claims an event id before acting on it. The claim is a Redis key
// written with SETNX, so only the first delivery wins; a consumer that fails
// part way releases its claim so the redelivery runs again.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aguasol/aguasol-backend/pkg/redis"
)

var (
	errConsumerRequired = errors.New("consumer name is required")
	errEventRequired    = errors.New("event id is required")
)

type Manager struct {
	store redis.MarkerStore
	ttl   time.Duration
	now   func() time.Time
}

// NewManager builds a guard whose claims expire after ttl. A zero ttl keeps
// claims until they are released.
func NewManager(store redis.MarkerStore, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// Claim is held by the consumer that saw an event first.
type Claim struct {
	store redis.MarkerStore
	key   string
}

// Key is the Redis key backing the claim.
func (c *Claim) Key() string { return c.key }

// Release drops the claim. It is a no-op on a nil claim.
func (c *Claim) Release(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.store.Del(ctx, c.key)
}

// Claim marks eventID as handled by consumer. It returns a nil claim when
// another delivery already holds it.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (*Claim, error) {
	switch {
	case consumer == "":
		return nil, errConsumerRequired
	case eventID == uuid.Nil:
		return nil, errEventRequired
	}
	key := m.store.IdempotencyKey("evt:"+consumer, eventID.String())
	won, err := m.store.SetNX(ctx, key, m.now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, nil
	}
	return &Claim{store: m.store, key: key}, nil
}
