package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event. The finalizer acts as
// ActorRoleSystem with no UserID.
type ActorRef struct {
	UserID *uuid.UUID `json:"userId,omitempty"`
	Role   string     `json:"role,omitempty"`
}

const (
	ActorRoleBidder = "bidder"
	ActorRoleSystem = "system"
)

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
