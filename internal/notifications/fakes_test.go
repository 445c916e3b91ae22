package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/pagination"
)

// fakeRepository records dispatcher writes; reads are unused by those tests.
type fakeRepository struct {
	createErr    error
	created      []models.Notification
	groupDeletes []string
}

func (f *fakeRepository) WithTx(*gorm.DB) Repository { return f }

func (f *fakeRepository) Create(_ context.Context, notification *models.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *notification)
	return nil
}

func (f *fakeRepository) DeleteUnreadInGroup(_ context.Context, _ uuid.UUID, groupKey string) (int64, error) {
	f.groupDeletes = append(f.groupDeletes, groupKey)
	return 0, nil
}

func (f *fakeRepository) List(context.Context, listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeRepository) CountUnread(context.Context, uuid.UUID, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRepository) MarkRead(context.Context, uuid.UUID, uuid.UUID, time.Time) (notificationMarkResult, error) {
	return notificationMarkResult{}, nil
}

func (f *fakeRepository) MarkAllRead(context.Context, uuid.UUID, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRepository) DeleteStale(context.Context, *gorm.DB, time.Time, time.Time) (int64, error) {
	return 0, nil
}
