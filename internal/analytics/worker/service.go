package worker

import (
	"context"
	"errors"

	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/router"
	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/types"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox"
)

const consumerName = "analytics"

// Handler receives auction facts bound for the warehouse.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	return fn(ctx, envelope)
}

type Params struct {
	Subscription outbox.Subscription
	Handler      Handler
	Claims       outbox.Claims
	Logger       *logger.Logger
}

// Service feeds auction fact events into the analytics handler. Everything
// else on the topic is acked and ignored.
type Service struct {
	handler  Handler
	consumer *outbox.Consumer
}

func NewService(params Params) (*Service, error) {
	if params.Handler == nil {
		return nil, errors.New("analytics handler is required")
	}
	s := &Service{handler: params.Handler}
	consumer, err := outbox.NewConsumer(outbox.ConsumerParams{
		Name:         consumerName,
		Subscription: params.Subscription,
		Claims:       params.Claims,
		Logger:       params.Logger,
		Accepts:      enums.OutboxEventType.IsAuctionFact,
		Handle:       s.handle,
	})
	if err != nil {
		return nil, err
	}
	s.consumer = consumer
	return s, nil
}

func (s *Service) Run(ctx context.Context) error {
	return s.consumer.Run(ctx)
}

func (s *Service) handle(ctx context.Context, d outbox.Delivery) error {
	err := s.handler.Handle(ctx, envelopeOf(d))
	if errors.Is(err, router.ErrUnsupportedEventType) {
		return outbox.Drop(err)
	}
	return err
}

func envelopeOf(d outbox.Delivery) types.Envelope {
	return types.Envelope{
		EventID:       d.EventID.String(),
		EventType:     d.EventType,
		AggregateType: d.AggregateType,
		AggregateID:   d.AggregateID,
		OccurredAt:    d.OccurredAt,
		Version:       d.Version,
		Payload:       d.Data,
	}
}
