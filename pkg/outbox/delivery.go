package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/google/uuid"
)

// Message attributes set by the outbox publisher.
const (
	AttrEventID       = "event_id"
	AttrEventType     = "event_type"
	AttrAggregateType = "aggregate_type"
	AttrAggregateID   = "aggregate_id"
	AttrCreatedAt     = "created_at"
)

// Delivery is one outbox event as it arrives on a subscription.
type Delivery struct {
	MessageID     string
	EventID       uuid.UUID
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Version       int
	Actor         *ActorRef
	Data          json.RawMessage
}

// Fields returns the log fields identifying the delivery.
func (d Delivery) Fields() map[string]any {
	fields := map[string]any{
		"message_id": d.MessageID,
		"event_type": string(d.EventType),
	}
	if d.EventID != uuid.Nil {
		fields["event_id"] = d.EventID.String()
	}
	if d.AggregateID != "" {
		fields["aggregate_type"] = string(d.AggregateType)
		fields["aggregate_id"] = d.AggregateID
	}
	return fields
}

// PeekEventType reads the event type attribute without touching the body.
func PeekEventType(msg *gcppubsub.Message) (enums.OutboxEventType, error) {
	return enums.ParseOutboxEventType(attr(msg, AttrEventType))
}

// ReadDelivery decodes the stored payload envelope and merges it with the
// message attributes. The envelope wins where both carry a value.
func ReadDelivery(msg *gcppubsub.Message) (Delivery, error) {
	if msg == nil {
		return Delivery{}, errors.New("nil message")
	}
	eventType, err := PeekEventType(msg)
	if err != nil {
		return Delivery{}, fmt.Errorf("%s: %w", AttrEventType, err)
	}

	var stored PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return Delivery{}, fmt.Errorf("decode payload envelope: %w", err)
	}

	d := Delivery{
		MessageID:   msg.ID,
		EventType:   eventType,
		AggregateID: attr(msg, AttrAggregateID),
		OccurredAt:  stored.OccurredAt,
		Version:     stored.Version,
		Actor:       stored.Actor,
		Data:        stored.Data,
	}

	if raw := attr(msg, AttrAggregateType); raw != "" {
		if d.AggregateType, err = enums.ParseOutboxAggregateType(raw); err != nil {
			return Delivery{}, fmt.Errorf("%s: %w", AttrAggregateType, err)
		}
	}

	rawID := strings.TrimSpace(stored.EventID)
	if rawID == "" {
		rawID = attr(msg, AttrEventID)
	}
	if rawID == "" {
		return Delivery{}, errors.New("event_id missing")
	}
	if d.EventID, err = uuid.Parse(rawID); err != nil {
		return Delivery{}, fmt.Errorf("%s: %w", AttrEventID, err)
	}

	if d.OccurredAt.IsZero() {
		if ts, err := time.Parse(time.RFC3339Nano, attr(msg, AttrCreatedAt)); err == nil {
			d.OccurredAt = ts
		}
	}
	d.OccurredAt = d.OccurredAt.UTC()
	return d, nil
}

func attr(msg *gcppubsub.Message, key string) string {
	return strings.TrimSpace(msg.Attributes[key])
}
