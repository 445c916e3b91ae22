// Package idempotency records which outbox events a consumer has already
// handled so redelivered messages are acknowledged without side effects.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/auctionhouse-backend/pkg/redis"
)

var (
	ErrNoConsumer = errors.New("idempotency: consumer name is required")
	ErrNoEventID  = errors.New("idempotency: event id is required")
)

// Store is the part of the Redis client a Manager needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Manager claims (consumer, event id) pairs in Redis. A claim lives for ttl;
// zero keeps it until evicted.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency: store is required")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("idempotency: negative ttl %s", ttl)
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// CheckAndMarkProcessed reports seen=true when an earlier delivery already
// holds the claim; otherwise the caller now owns it.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (seen bool, err error) {
	key, err := ProcessedKey(consumer, eventID)
	if err != nil {
		return false, err
	}
	// The value is informational: when the claim was taken.
	claimed, err := m.store.SetNX(ctx, key, m.now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return !claimed, nil
}

// Delete gives the claim back so a redelivery is processed again.
func (m *Manager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := ProcessedKey(consumer, eventID)
	if err != nil {
		return err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// ProcessedKey is ah:idempotency:evt:processed:<consumer>:<event id>.
func ProcessedKey(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", ErrNoConsumer
	case eventID == uuid.Nil:
		return "", ErrNoEventID
	}
	return redis.Key("idempotency", "evt", "processed", consumer, eventID.String()), nil
}
