package notifications

import (
	"context"
	"errors"

	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox/registry"
)

const consumerName = "notification-requests"

type notifier interface {
	Notify(ctx context.Context, req Request)
}

// Consumer stores notification_requested events through the dispatcher.
type Consumer struct {
	*outbox.Consumer
	dispatcher notifier
	decoders   *registry.DecoderRegistry
}

func NewConsumer(dispatcher notifier, sub outbox.Subscription, claims outbox.Claims, logg *logger.Logger) (*Consumer, error) {
	if dispatcher == nil {
		return nil, errors.New("notification dispatcher required")
	}
	c := &Consumer{
		dispatcher: dispatcher,
		decoders:   registry.NewDefaultDecoderRegistry(),
	}
	inner, err := outbox.NewConsumer(outbox.ConsumerParams{
		Name:         consumerName,
		Subscription: sub,
		Claims:       claims,
		Logger:       logg,
		Accepts:      func(t enums.OutboxEventType) bool { return t == enums.EventNotificationRequested },
		Handle:       c.handle,
	})
	if err != nil {
		return nil, err
	}
	c.Consumer = inner
	return c, nil
}

func (c *Consumer) handle(ctx context.Context, d outbox.Delivery) error {
	event, err := registry.DecodeAs[payloads.NotificationRequestedEvent](c.decoders, d.EventType, d.Version, d.Data)
	if err != nil {
		return outbox.Drop(err)
	}
	c.dispatcher.Notify(ctx, requestFromEvent(event))
	return nil
}

func requestFromEvent(e *payloads.NotificationRequestedEvent) Request {
	return Request{
		UserID:    e.UserID,
		Type:      e.Type,
		Title:     e.Title,
		Message:   e.Message,
		Priority:  e.Priority,
		ActionURL: e.ActionURL,
		Metadata:  e.Metadata,
		GroupKey:  e.GroupKey,
		ExpiresAt: e.ExpiresAt,
	}
}
