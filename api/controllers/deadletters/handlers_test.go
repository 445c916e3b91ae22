package deadletters

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

type stubStore struct {
	rows     []models.OutboxDLQ
	limit    int
	replayed uuid.UUID
	found    bool
	err      error
}

func (s *stubStore) List(_ context.Context, limit int) ([]models.OutboxDLQ, error) {
	s.limit = limit
	return s.rows, s.err
}

func (s *stubStore) Replay(_ context.Context, eventID uuid.UUID) (bool, error) {
	s.replayed = eventID
	return s.found, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func replayRequest(id string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/outbox/dead-letters/"+id+"/replay", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("eventId", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestListRendersEntries(t *testing.T) {
	msg := "decode failed"
	store := &stubStore{rows: []models.OutboxDLQ{{
		EventID:      uuid.New(),
		EventType:    enums.EventBidPlaced,
		Payload:      json.RawMessage(`{"a":1}`),
		ErrorReason:  enums.OutboxDLQReasonNonRetryable,
		ErrorMessage: &msg,
	}}}
	rec := httptest.NewRecorder()
	List(store, testLogger())(rec, httptest.NewRequest(http.MethodGet, "/?limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, store.limit)
	var body struct {
		Data []entryView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "non_retryable", body.Data[0].Reason)
	assert.Equal(t, "bid_placed", body.Data[0].EventType)
}

func TestReplay(t *testing.T) {
	id := uuid.New()
	store := &stubStore{found: true}
	rec := httptest.NewRecorder()
	Replay(store, testLogger())(rec, replayRequest(id.String()))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, id, store.replayed)
}

func TestReplayErrors(t *testing.T) {
	cases := []struct {
		name   string
		id     string
		store  *stubStore
		status int
	}{
		{name: "bad id", id: "nope", store: &stubStore{}, status: http.StatusBadRequest},
		{name: "missing", id: uuid.NewString(), store: &stubStore{}, status: http.StatusNotFound},
		{name: "db down", id: uuid.NewString(), store: &stubStore{err: errors.New("down")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Replay(tc.store, testLogger())(rec, replayRequest(tc.id))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
