package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aguasol/aguasol-backend/pkg/enums"
)

// ErrNoDecoder reports an event type and version with no registered decoder.
var ErrNoDecoder = errors.New("no decoder registered")

// Decoder turns an envelope's data field into a typed payload.
type Decoder func(data json.RawMessage) (any, error)

type versionedType struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps event type and payload version to a decoder.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[versionedType]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[versionedType]Decoder{}}
}

// Register replaces any decoder already held for eventType at version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[versionedType{eventType, version}] = decode
}

// RegisterJSON registers a decoder that unmarshals into a fresh *T.
func RegisterJSON[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int) {
	r.Register(eventType, version, func(data json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("decode %s v%d: %w", eventType, version, err)
		}
		return out, nil
	})
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	r.mu.RLock()
	decode, ok := r.decoders[versionedType{eventType, version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for %s v%d", ErrNoDecoder, eventType, version)
	}
	return decode(data)
}
