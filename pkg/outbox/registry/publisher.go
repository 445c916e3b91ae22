package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox"
)

// ErrNonRetryable marks an outbox row that can never be published as stored.
var ErrNonRetryable = errors.New("non-retryable")

// Permanent tags err with ErrNonRetryable.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrNonRetryable, err)
}

// Route binds an event type to the aggregate that owns it and its topic.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row that passed validation and decoding.
type ResolvedEvent struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// EventRegistry validates outbox rows before they are relayed.
type EventRegistry struct {
	routes   map[enums.OutboxEventType]Route
	decoders *DecoderRegistry
}

// NewEventRegistry sends auction facts to the analytics topic and
// notification requests to the notification topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	switch {
	case cfg.AnalyticsTopic == "":
		return nil, errors.New("analytics topic is required")
	case cfg.NotificationTopic == "":
		return nil, errors.New("notification topic is required")
	}
	r := &EventRegistry{routes: map[enums.OutboxEventType]Route{}, decoders: NewDefaultDecoderRegistry()}
	for _, t := range []enums.OutboxEventType{enums.EventBidPlaced, enums.EventAuctionExtended, enums.EventAuctionFinalized} {
		r.routes[t] = Route{EventType: t, AggregateType: enums.AggregateAuction, Topic: cfg.AnalyticsTopic}
	}
	r.routes[enums.EventNotificationRequested] = Route{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		Topic:         cfg.NotificationTopic,
	}
	return r, nil
}

// Topics returns the distinct destination topics, sorted.
func (r *EventRegistry) Topics() []string {
	set := map[string]struct{}{}
	for _, route := range r.routes {
		set[route.Topic] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Resolve checks the row against its route and decodes the payload. Every
// failure is Permanent: retrying the same bytes cannot succeed.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	route, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("unsupported event type %s", event.EventType))
	case route.AggregateType != event.AggregateType:
		return nil, Permanent(fmt.Errorf("%s belongs to %s aggregates, row has %s", event.EventType, route.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, Permanent(errors.New("missing aggregate_id"))
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return nil, Permanent(fmt.Errorf("decode envelope: %w", err))
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, Permanent(fmt.Errorf("%s has no payload", event.EventType))
	}
	payload, err := r.decoders.Decode(event.EventType, env.Version, env.Data)
	if err != nil {
		return nil, Permanent(err)
	}
	return &ResolvedEvent{Route: route, Envelope: env, Payload: payload}, nil
}
