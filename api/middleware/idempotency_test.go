package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
	"github.com/angelmondragon/auctionhouse-backend/pkg/redis"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key], m.ttls[key] = value.(string), ttl
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], m.ttls[key] = value.(string), ttl
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return redis.Key("idempotency", scope, id)
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

const bidPath = "/api/v1/auctions/4f1c2b7a-0000-4000-8000-000000000001/bids"

func bidRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, bidPath, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req.WithContext(WithUserID(req.Context(), "user-1"))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	h := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for range 2 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, bidRequest(`{"amount":"105.00"}`, ""))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyReplaysRecordedResponse(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	h := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"bid_id":"b-1"}`))
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, bidRequest(`{"amount":"105.00"}`, "abc"))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	h.ServeHTTP(replay, bidRequest(`{"amount":"105.00"}`, "abc"))
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, `{"bid_id":"b-1"}`, replay.Body.String())
	assert.Equal(t, 1, calls)

	key := store.IdempotencyKey("http:user-1:POST:"+bidPath, "abc")
	assert.Equal(t, time.Hour, store.ttls[key], "finished responses keep the configured ttl")
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	store := newMemoryStore()
	h := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), bidRequest(`{"amount":"105.00"}`, "xyz"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, bidRequest(`{"amount":"110.00"}`, "xyz"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newMemoryStore()
	var inner *httptest.ResponseRecorder
	var h http.Handler
	h = Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the same request lands while this one still holds the key
		inner = httptest.NewRecorder()
		h.ServeHTTP(inner, bidRequest(`{"amount":"105.00"}`, "dup"))
		w.WriteHeader(http.StatusCreated)
	}))

	outer := httptest.NewRecorder()
	h.ServeHTTP(outer, bidRequest(`{"amount":"105.00"}`, "dup"))

	assert.Equal(t, http.StatusCreated, outer.Code)
	require.NotNil(t, inner)
	assert.Equal(t, http.StatusConflict, inner.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, inner))
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	h := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	for range 2 {
		h.ServeHTTP(httptest.NewRecorder(), bidRequest(`{"amount":"105.00"}`, "retry-me"))
	}
	assert.Equal(t, 2, calls, "a retry after a 5xx reaches the handler")
}

func TestIdempotencyReleasesKeyOnPanic(t *testing.T) {
	store := newMemoryStore()
	h := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	assert.Panics(t, func() {
		h.ServeHTTP(httptest.NewRecorder(), bidRequest(`{}`, "panic"))
	})
	assert.Empty(t, store.data)
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	h := Idempotency(newMemoryStore(), time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, bidRequest(`{}`, strings.Repeat("k", maxIdempotencyKeyBytes+1)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
