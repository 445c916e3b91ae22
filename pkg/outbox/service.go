package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

const envelopeVersion = 1

var (
	errNoTx          = errors.New("outbox: transaction required")
	errUnknownEvent  = errors.New("outbox: unknown event type")
	errNoAggregateID = errors.New("outbox: aggregate id required")
)

// DomainEvent is what services hand to Emit; Data is marshalled into the envelope.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit queues event inside tx. The row commits or rolls back with the state
// change that produced it; the publisher relays it afterwards.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errNoTx
	}
	envelope, err := seal(event)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("outbox: encode envelope: %w", err)
	}
	row := models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       raw,
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"event_id":       envelope.EventID,
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
	}), "outbox.event_queued")
	return nil
}

// seal validates event and wraps its data in a fresh envelope.
func seal(event DomainEvent) (PayloadEnvelope, error) {
	switch {
	case !event.EventType.IsValid():
		return PayloadEnvelope{}, fmt.Errorf("%w: %q", errUnknownEvent, event.EventType)
	case event.AggregateID == uuid.Nil:
		return PayloadEnvelope{}, errNoAggregateID
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("outbox: encode %s data: %w", event.EventType, err)
	}

	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	version := event.Version
	if version <= 0 {
		version = envelopeVersion
	}
	return PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: occurred.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}, nil
}
