package types

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
)

// Envelope is the warehouse view of an outbox delivery.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Version       int
	Payload       json.RawMessage
}
