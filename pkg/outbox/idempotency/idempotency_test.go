package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	keys   map[string]time.Duration
	values map[string]any
	setErr error
}

func newMapStore() *mapStore {
	return &mapStore{keys: map[string]time.Duration{}, values: map[string]any{}}
}

func (s *mapStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.setErr != nil {
		return false, s.setErr
	}
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = ttl
	if s.values != nil {
		s.values[key] = value
	}
	return true, nil
}

func (s *mapStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.keys, k)
	}
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	store := newMapStore()
	m, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)
	m.now = func() time.Time { return time.Date(2026, 5, 1, 11, 30, 0, 0, time.FixedZone("CEST", 2*3600)) }
	ctx := context.Background()
	eventID := uuid.New()

	seen, err := m.CheckAndMarkProcessed(ctx, "notifications", eventID)
	require.NoError(t, err)
	assert.False(t, seen)

	key := "ah:idempotency:evt:processed:notifications:" + eventID.String()
	assert.Equal(t, 24*time.Hour, store.keys[key])
	assert.Equal(t, "2026-05-01T09:30:00Z", store.values[key])

	seen, err = m.CheckAndMarkProcessed(ctx, "notifications", eventID)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = m.CheckAndMarkProcessed(ctx, "analytics", eventID)
	require.NoError(t, err)
	assert.False(t, seen, "claims are per consumer")
}

func TestDeleteReleasesClaim(t *testing.T) {
	store := newMapStore()
	m, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	_, err = m.CheckAndMarkProcessed(ctx, "notifications", eventID)
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, "notifications", eventID))

	seen, err := m.CheckAndMarkProcessed(ctx, "notifications", eventID)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestCheckAndMarkProcessedPropagatesStoreError(t *testing.T) {
	boom := errors.New("boom")
	m, err := NewManager(&mapStore{setErr: boom}, time.Hour)
	require.NoError(t, err)

	_, err = m.CheckAndMarkProcessed(context.Background(), "notifications", uuid.New())
	assert.ErrorIs(t, err, boom)
}

func TestProcessedKeyValidation(t *testing.T) {
	_, err := ProcessedKey("", uuid.New())
	assert.ErrorIs(t, err, ErrNoConsumer)
	_, err = ProcessedKey("notifications", uuid.Nil)
	assert.ErrorIs(t, err, ErrNoEventID)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(newMapStore(), -time.Second)
	assert.Error(t, err)
}
