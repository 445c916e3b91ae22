package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/router"
	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/types"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox"
	"github.com/google/uuid"
)

func TestServiceHandsAuctionFactsToHandler(t *testing.T) {
	var got []types.Envelope
	svc, claims := newTestService(t, HandlerFunc(func(_ context.Context, env types.Envelope) error {
		got = append(got, env)
		return nil
	}))
	eventID := uuid.New()
	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := message(t, eventID, occurred, "bid_placed")

	if !svc.consumer.Process(context.Background(), msg) {
		t.Fatal("expected ack")
	}
	if len(got) != 1 {
		t.Fatalf("expected one envelope, got %d", len(got))
	}
	env := got[0]
	if env.EventID != eventID.String() || env.EventType != enums.EventBidPlaced {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if env.AggregateType != enums.AggregateAuction || env.AggregateID != "auc-1" {
		t.Fatalf("unexpected aggregate %s/%s", env.AggregateType, env.AggregateID)
	}
	if !env.OccurredAt.Equal(occurred) {
		t.Fatalf("unexpected occurred at %v", env.OccurredAt)
	}
	if claims.checked != 1 {
		t.Fatalf("expected one idempotency check, got %d", claims.checked)
	}
}

func TestServiceIgnoresNotificationRequests(t *testing.T) {
	called := false
	svc, claims := newTestService(t, HandlerFunc(func(context.Context, types.Envelope) error {
		called = true
		return nil
	}))

	if !svc.consumer.Process(context.Background(), message(t, uuid.New(), time.Now(), "notification_requested")) {
		t.Fatal("expected ack")
	}
	if called || claims.checked != 0 {
		t.Fatalf("notification requests must not reach analytics (called=%v checks=%d)", called, claims.checked)
	}
}

func TestServiceRetriesHandlerFailures(t *testing.T) {
	svc, claims := newTestService(t, HandlerFunc(func(context.Context, types.Envelope) error {
		return errors.New("warehouse unavailable")
	}))

	if svc.consumer.Process(context.Background(), message(t, uuid.New(), time.Now(), "auction_finalized")) {
		t.Fatal("expected nack")
	}
	if claims.deleted != 1 {
		t.Fatalf("expected claim released, got %d deletes", claims.deleted)
	}
}

func TestServiceDropsUnroutableEvents(t *testing.T) {
	svc, claims := newTestService(t, HandlerFunc(func(context.Context, types.Envelope) error {
		return router.ErrUnsupportedEventType
	}))

	if !svc.consumer.Process(context.Background(), message(t, uuid.New(), time.Now(), "auction_extended")) {
		t.Fatal("unroutable events are acked")
	}
	if claims.deleted != 0 {
		t.Fatal("claim must stay for dropped events")
	}
}

func TestNewServiceRequiresHandler(t *testing.T) {
	if _, err := NewService(Params{}); err == nil {
		t.Fatal("expected error")
	}
}

func newTestService(t *testing.T, handler Handler) (*Service, *countingClaims) {
	t.Helper()
	claims := &countingClaims{}
	svc, err := NewService(Params{
		Subscription: idleSubscription{},
		Handler:      handler,
		Claims:       claims,
		Logger:       logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, claims
}

func message(t *testing.T, eventID uuid.UUID, occurred time.Time, eventType string) *gcppubsub.Message {
	t.Helper()
	data, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: occurred,
		Data:       json.RawMessage(`{"auction_id":"auc-1"}`),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &gcppubsub.Message{
		ID:   "msg-1",
		Data: data,
		Attributes: map[string]string{
			outbox.AttrEventType:     eventType,
			outbox.AttrAggregateType: "auction",
			outbox.AttrAggregateID:   "auc-1",
		},
	}
}

type idleSubscription struct{}

func (idleSubscription) Receive(ctx context.Context, _ func(context.Context, *gcppubsub.Message)) error {
	<-ctx.Done()
	return ctx.Err()
}

type countingClaims struct {
	checked int
	deleted int
}

func (c *countingClaims) CheckAndMarkProcessed(context.Context, string, uuid.UUID) (bool, error) {
	c.checked++
	return false, nil
}

func (c *countingClaims) Delete(context.Context, string, uuid.UUID) error {
	c.deleted++
	return nil
}
