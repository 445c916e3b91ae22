package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/types"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox/registry"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer appends rows to the auction_events table.
type Writer interface {
	InsertAuctionEvent(ctx context.Context, row types.AuctionEventRow) error
}

// Handler receives an envelope together with its decoded payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

// Router decodes each envelope and hands it to the handler for its event type.
type Router struct {
	decoders *registry.DecoderRegistry
	handlers map[enums.OutboxEventType]Handler
}

// NewRouter maps every auction fact to a row writer. overrides replaces the
// handler for an event type that already has one.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	rowHandler := func(build rowBuilder) Handler {
		return &auctionEventHandler{writer: writer, logg: logg, build: build}
	}
	handlers := map[enums.OutboxEventType]Handler{
		enums.EventBidPlaced:        rowHandler(typed(bidPlacedRow)),
		enums.EventAuctionExtended:  rowHandler(typed(auctionExtendedRow)),
		enums.EventAuctionFinalized: rowHandler(typed(auctionFinalizedRow)),
	}
	for eventType, h := range overrides {
		if _, known := handlers[eventType]; known && h != nil {
			handlers[eventType] = h
		}
	}

	return &Router{decoders: registry.NewDefaultDecoderRegistry(), handlers: handlers}, nil
}

func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	h, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	payload, err := r.decoders.Decode(envelope.EventType, envelope.Version, envelope.Payload)
	if err != nil {
		return err
	}
	return h.Handle(ctx, envelope, payload)
}
