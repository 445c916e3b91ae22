package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

func newTestDispatcher(t *testing.T, repo Repository, tx txRunner, now time.Time) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(repo, tx, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	d.now = func() time.Time { return now }
	return d
}

func TestDispatcherStoresNotification(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepository{}
	d := newTestDispatcher(t, repo, fakeTxRunner{}, now)
	user := uuid.New()

	d.Notify(context.Background(), Request{
		UserID:    user,
		Type:      enums.NotificationTypeOutbid,
		Title:     " You've been outbid ",
		Message:   "Someone bid 110.00",
		ActionURL: "/auctions/abc",
		Metadata:  json.RawMessage(`{"amount":"110.00"}`),
	})

	require.Len(t, repo.created, 1)
	row := repo.created[0]
	assert.Equal(t, user, row.UserID)
	assert.Equal(t, "You've been outbid", row.Title)
	assert.Equal(t, enums.NotificationPriorityNormal, row.Priority)
	require.NotNil(t, row.ActionURL)
	assert.Equal(t, "/auctions/abc", *row.ActionURL)
	assert.Empty(t, repo.groupDeletes)
}

func TestDispatcherReplacesGroupedNotifications(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepository{}
	d := newTestDispatcher(t, repo, fakeTxRunner{}, now)
	group := "auction:123"
	expires := now.Add(2 * time.Minute)

	d.Notify(context.Background(), Request{
		UserID:    uuid.New(),
		Type:      enums.NotificationTypeAuctionExtended,
		Title:     "Auction extended",
		Priority:  enums.NotificationPriorityNormal,
		GroupKey:  &group,
		ExpiresAt: &expires,
	})

	assert.Equal(t, []string{group}, repo.groupDeletes)
	require.Len(t, repo.created, 1)
	require.NotNil(t, repo.created[0].ExpiresAt)
	assert.True(t, repo.created[0].ExpiresAt.Equal(expires))
}

func TestDispatcherDropsExpiredAndInvalid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepository{}
	d := newTestDispatcher(t, repo, fakeTxRunner{}, now)
	past := now.Add(-time.Second)

	d.Notify(context.Background(), Request{UserID: uuid.New(), Type: enums.NotificationTypeAuctionExtended, Title: "late", ExpiresAt: &past})
	d.Notify(context.Background(), Request{Type: enums.NotificationTypeOutbid, Title: "no user"})
	d.Notify(context.Background(), Request{UserID: uuid.New(), Type: "mystery", Title: "bad type"})
	d.Notify(context.Background(), Request{UserID: uuid.New(), Type: enums.NotificationTypeOutbid, Title: "bad priority", Priority: "critical"})
	d.Notify(context.Background(), Request{UserID: uuid.New(), Type: enums.NotificationTypeOutbid, Title: "   "})

	assert.Empty(t, repo.created)
}

func TestDispatcherSwallowsStorageErrors(t *testing.T) {
	now := time.Now()
	repo := &fakeRepository{createErr: errors.New("db down")}
	d := newTestDispatcher(t, repo, fakeTxRunner{}, now)

	assert.NotPanics(t, func() {
		d.Notify(context.Background(), Request{UserID: uuid.New(), Type: enums.NotificationTypeBidPlaced, Title: "Bid placed"})
	})

	d = newTestDispatcher(t, &fakeRepository{}, fakeTxRunner{err: errors.New("begin failed")}, now)
	assert.NotPanics(t, func() {
		d.Notify(context.Background(), Request{UserID: uuid.New(), Type: enums.NotificationTypeBidPlaced, Title: "Bid placed"})
	})
}
