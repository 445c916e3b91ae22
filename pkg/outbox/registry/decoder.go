package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox/payloads"
)

// ErrNoDecoder is returned for an event type and version nobody registered.
var ErrNoDecoder = errors.New("no payload decoder")

// Decoder turns the data field of a payload envelope into a typed event.
type Decoder func(data json.RawMessage) (any, error)

// JSON decodes into a fresh *T.
func JSON[T any]() Decoder {
	return func(data json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(data, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, payload version) to a decoder.
type DecoderRegistry struct {
	mu    sync.RWMutex
	byKey map[decoderKey]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{byKey: map[decoderKey]Decoder{}}
}

// NewDefaultDecoderRegistry knows v1 of every payload in package payloads.
func NewDefaultDecoderRegistry() *DecoderRegistry {
	r := NewDecoderRegistry()
	r.Register(enums.EventBidPlaced, 1, JSON[payloads.BidPlacedEvent]())
	r.Register(enums.EventAuctionExtended, 1, JSON[payloads.AuctionExtendedEvent]())
	r.Register(enums.EventAuctionFinalized, 1, JSON[payloads.AuctionFinalizedEvent]())
	r.Register(enums.EventNotificationRequested, 1, JSON[payloads.NotificationRequestedEvent]())
	return r
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[decoderKey{eventType, version}] = decode
}

// Decode treats a zero version as 1; envelopes written before versioning carry none.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	if version <= 0 {
		version = 1
	}
	r.mu.RLock()
	decode, ok := r.byKey[decoderKey{eventType, version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for %s v%d", ErrNoDecoder, eventType, version)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s v%d: empty payload", eventType, version)
	}
	out, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s v%d: %w", eventType, version, err)
	}
	return out, nil
}

// DecodeAs decodes and asserts the result is a *T.
func DecodeAs[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int, data json.RawMessage) (*T, error) {
	out, err := r.Decode(eventType, version, data)
	if err != nil {
		return nil, err
	}
	typed, ok := out.(*T)
	if !ok {
		return nil, fmt.Errorf("%s v%d decoded to %T, want *%T", eventType, version, out, *new(T))
	}
	return typed, nil
}
