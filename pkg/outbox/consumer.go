package outbox

import (
	"context"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/google/uuid"
)

// ErrDrop tells a Consumer the delivery can never succeed. It is acked and
// its idempotency claim kept.
var ErrDrop = errors.New("outbox: drop delivery")

// Drop wraps err so the consumer acks instead of redelivering.
func Drop(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrDrop, err)
}

// Claims records which events a named consumer has already processed.
type Claims interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Subscription is satisfied by *pubsub.Subscriber.
type Subscription interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type DeliveryHandler func(ctx context.Context, d Delivery) error

type ConsumerParams struct {
	// Name scopes idempotency claims; two consumers of one topic need different names.
	Name         string
	Subscription Subscription
	Claims       Claims
	Logger       *logger.Logger
	// Accepts filters event types. Others are acked untouched. Nil accepts all.
	Accepts func(enums.OutboxEventType) bool
	Handle  DeliveryHandler
}

// Consumer receives outbox events at least once and hands each one to the
// handler at most once per claim window.
type Consumer struct {
	name    string
	sub     Subscription
	claims  Claims
	logg    *logger.Logger
	accepts func(enums.OutboxEventType) bool
	handle  DeliveryHandler
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	switch {
	case params.Name == "":
		return nil, errors.New("consumer name required")
	case params.Subscription == nil:
		return nil, errors.New("subscription required")
	case params.Claims == nil:
		return nil, errors.New("idempotency claims required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Handle == nil:
		return nil, errors.New("delivery handler required")
	}
	accepts := params.Accepts
	if accepts == nil {
		accepts = func(enums.OutboxEventType) bool { return true }
	}
	return &Consumer{
		name:    params.Name,
		sub:     params.Subscription,
		claims:  params.Claims,
		logg:    params.Logger,
		accepts: accepts,
		handle:  params.Handle,
	}, nil
}

// Run blocks until ctx is cancelled or the subscription fails.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		if c.Process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Process handles one message and reports whether it should be acked.
func (c *Consumer) Process(ctx context.Context, msg *gcppubsub.Message) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{"consumer": c.name, "message_id": msg.ID})

	eventType, err := PeekEventType(msg)
	if err == nil && !c.accepts(eventType) {
		c.logg.Debug(logCtx, "delivery.skipped")
		return true
	}

	d, err := ReadDelivery(msg)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "reason", err.Error()), "delivery.malformed")
		return true
	}
	logCtx = c.logg.WithFields(logCtx, d.Fields())

	seen, err := c.claims.CheckAndMarkProcessed(logCtx, c.name, d.EventID)
	if err != nil {
		c.logg.Error(logCtx, "delivery.claim_failed", err)
		return false
	}
	if seen {
		c.logg.Info(logCtx, "delivery.duplicate")
		return true
	}

	err = c.handle(logCtx, d)
	switch {
	case err == nil:
		c.logg.Info(logCtx, "delivery.handled")
		return true
	case errors.Is(err, ErrDrop):
		c.logg.Warn(c.logg.WithField(logCtx, "reason", err.Error()), "delivery.dropped")
		return true
	default:
		c.logg.Error(logCtx, "delivery.failed", err)
		if relErr := c.claims.Delete(logCtx, c.name, d.EventID); relErr != nil {
			c.logg.Error(logCtx, "delivery.release_failed", relErr)
		}
		return false
	}
}
