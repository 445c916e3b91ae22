package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/auctionhouse-backend/api/middleware"
	"github.com/angelmondragon/auctionhouse-backend/internal/notifications"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

// inboxStub records the last call and returns canned results.
type inboxStub struct {
	listParams notifications.ListParams
	list       *notifications.ListResult
	readUser   uuid.UUID
	readID     uuid.UUID
	updated    int64
	err        error
}

func (s *inboxStub) List(_ context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	s.listParams = params
	return s.list, s.err
}

func (s *inboxStub) MarkRead(_ context.Context, userID, notificationID uuid.UUID) error {
	s.readUser, s.readID = userID, notificationID
	return s.err
}

func (s *inboxStub) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	s.readUser = userID
	return s.updated, s.err
}

func serveInbox(h http.HandlerFunc, method, target string, userID uuid.UUID, params map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	ctx := req.Context()
	if userID != uuid.Nil {
		ctx = middleware.WithUserID(ctx, userID.String())
	}
	if len(params) > 0 {
		rc := chi.NewRouteContext()
		for k, v := range params {
			rc.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	}
	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestListNotificationsReturnsPage(t *testing.T) {
	user := uuid.New()
	link := "/auctions/abc"
	stub := &inboxStub{list: &notifications.ListResult{
		Items: []models.Notification{{
			ID:        uuid.New(),
			UserID:    user,
			Type:      enums.NotificationTypeOutbid,
			Priority:  enums.NotificationPriorityHigh,
			Title:     "You have been outbid",
			ActionURL: &link,
			Metadata:  json.RawMessage(`{"new_amount":"110.00"}`),
		}},
		Cursor:      "next",
		UnreadCount: 4,
	}}

	rec := serveInbox(ListNotifications(stub, quietLogger()), http.MethodGet, "/api/v1/notifications?limit=10&unreadOnly=true", user, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, notifications.ListParams{UserID: user, Limit: 10, UnreadOnly: true}, stub.listParams)
	page := decodeData[inboxPage](t, rec)
	assert.Equal(t, "next", page.Cursor)
	assert.EqualValues(t, 4, page.UnreadCount)
	require.Len(t, page.Items, 1)
	assert.Equal(t, string(enums.NotificationTypeOutbid), page.Items[0].Type)
	assert.Equal(t, "110.00", page.Items[0].Metadata["new_amount"])
}

func TestListNotificationsRejectsBadQuery(t *testing.T) {
	for _, target := range []string{"/api/v1/notifications?limit=0", "/api/v1/notifications?unreadOnly=maybe"} {
		rec := serveInbox(ListNotifications(&inboxStub{}, quietLogger()), http.MethodGet, target, uuid.New(), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	user, id := uuid.New(), uuid.New()
	stub := &inboxStub{}
	rec := serveInbox(MarkNotificationRead(stub, quietLogger()), http.MethodPost, "/", user, map[string]string{"notificationId": id.String()})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user, stub.readUser)
	assert.Equal(t, id, stub.readID)
	assert.True(t, decodeData[map[string]bool](t, rec)["read"])
}

func TestMarkNotificationReadErrors(t *testing.T) {
	id := uuid.NewString()
	cases := []struct {
		name   string
		user   uuid.UUID
		param  string
		err    error
		status int
	}{
		{name: "anonymous", param: id, status: http.StatusUnauthorized},
		{name: "bad id", user: uuid.New(), param: "invalid", status: http.StatusBadRequest},
		{name: "missing", user: uuid.New(), param: id, err: pkgerrors.New(pkgerrors.CodeNotFound, "notification not found"), status: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveInbox(MarkNotificationRead(&inboxStub{err: tc.err}, quietLogger()), http.MethodPost, "/", tc.user, map[string]string{"notificationId": tc.param})
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	user := uuid.New()
	stub := &inboxStub{updated: 5}
	rec := serveInbox(MarkAllNotificationsRead(stub, quietLogger()), http.MethodPost, "/", user, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user, stub.readUser)
	assert.EqualValues(t, 5, decodeData[map[string]int64](t, rec)["updated"])
}

func TestInboxHandlersWithoutService(t *testing.T) {
	rec := serveInbox(MarkAllNotificationsRead(nil, quietLogger()), http.MethodPost, "/", uuid.New(), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
