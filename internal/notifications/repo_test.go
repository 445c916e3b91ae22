package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/dbtest"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
)

func seedNotification(t *testing.T, conn *gorm.DB, n models.Notification) models.Notification {
	t.Helper()
	if n.Type == "" {
		n.Type = enums.NotificationTypeBidPlaced
	}
	if n.Priority == "" {
		n.Priority = enums.NotificationPriorityNormal
	}
	if n.Title == "" {
		n.Title = "title"
	}
	require.NoError(t, conn.Create(&n).Error)
	return n
}

func TestRepositoryListPaginatesAndHidesExpired(t *testing.T) {
	conn := dbtest.Open(t, &models.Notification{})
	repo := NewRepository(conn)
	user := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expired := base.Add(-time.Minute)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		n := seedNotification(t, conn, models.Notification{UserID: user, CreatedAt: base.Add(time.Duration(i) * time.Second)})
		ids = append(ids, n.ID)
	}
	seedNotification(t, conn, models.Notification{UserID: user, ExpiresAt: &expired, CreatedAt: base.Add(time.Hour)})
	seedNotification(t, conn, models.Notification{UserID: uuid.New()})

	page, cursor, err := repo.List(context.Background(), listNotificationsParams{UserID: user, Limit: 2, Now: base})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)
	require.NotNil(t, cursor)

	rest, next, err := repo.List(context.Background(), listNotificationsParams{UserID: user, Limit: 2, Cursor: cursor, Now: base})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[0], rest[0].ID)
	assert.Nil(t, next)
}

func TestRepositoryMarkReadAndGroups(t *testing.T) {
	conn := dbtest.Open(t, &models.Notification{})
	repo := NewRepository(conn)
	user := uuid.New()
	group := "auction:1"
	now := time.Now().UTC()

	unread := seedNotification(t, conn, models.Notification{UserID: user, GroupKey: &group})
	read := seedNotification(t, conn, models.Notification{UserID: user, GroupKey: &group, ReadAt: &now})

	deleted, err := repo.DeleteUnreadInGroup(context.Background(), user, group)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int64
	require.NoError(t, conn.Model(&models.Notification{}).Where("id = ?", unread.ID).Count(&count).Error)
	assert.Zero(t, count)

	mark, err := repo.MarkRead(context.Background(), user, read.ID, now)
	require.NoError(t, err)
	assert.True(t, mark.Found)
	assert.False(t, mark.Updated)

	mark, err = repo.MarkRead(context.Background(), uuid.New(), read.ID, now)
	require.NoError(t, err)
	assert.False(t, mark.Found)

	seedNotification(t, conn, models.Notification{UserID: user})
	updated, err := repo.MarkAllRead(context.Background(), user, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
}

func TestRepositoryDeleteStale(t *testing.T) {
	conn := dbtest.Open(t, &models.Notification{})
	repo := NewRepository(conn)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	readAt := now.Add(-40 * 24 * time.Hour)

	seedNotification(t, conn, models.Notification{UserID: uuid.New(), ExpiresAt: &past})
	keepFuture := seedNotification(t, conn, models.Notification{UserID: uuid.New(), ExpiresAt: &future})
	seedNotification(t, conn, models.Notification{UserID: uuid.New(), ReadAt: &readAt, CreatedAt: readAt})
	keepUnread := seedNotification(t, conn, models.Notification{UserID: uuid.New(), CreatedAt: readAt})

	deleted, err := repo.DeleteStale(context.Background(), conn, now, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.Notification
	require.NoError(t, conn.Find(&remaining).Error)
	ids := []uuid.UUID{}
	for _, n := range remaining {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{keepFuture.ID, keepUnread.ID}, ids)
}
