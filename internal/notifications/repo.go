package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/pagination"
)

// Repository persists notifications for the dispatcher, the inbox API and
// housekeeping.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	DeleteUnreadInGroup(ctx context.Context, userID uuid.UUID, groupKey string) (int64, error)
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	CountUnread(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	DeleteStale(ctx context.Context, tx *gorm.DB, now, readBefore time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listNotificationsParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
	Now        time.Time
}

type notificationMarkResult struct {
	Updated bool
	Found   bool
}

func ownedBy(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB { return q.Where("user_id = ?", userID) }
}

func unread(q *gorm.DB) *gorm.DB {
	return q.Where("read_at IS NULL")
}

// visibleAt hides rows whose expiry has passed. A zero now disables the filter.
func visibleAt(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if now.IsZero() {
			return q
		}
		return q.Where("expires_at IS NULL OR expires_at > ?", now)
	}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) notifications(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{})
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// DeleteUnreadInGroup drops unread rows a newer notification in the same group supersedes.
func (r *repositoryImpl) DeleteUnreadInGroup(ctx context.Context, userID uuid.UUID, groupKey string) (int64, error) {
	res := r.db.WithContext(ctx).
		Scopes(ownedBy(userID), unread).
		Where("group_key = ?", groupKey).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	q := r.notifications(ctx).Scopes(ownedBy(params.UserID), visibleAt(params.Now))
	if params.UnreadOnly {
		q = q.Scopes(unread)
	}

	var rows []models.Notification
	if err := q.Scopes(pagination.Keyset(params.Cursor, params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *repositoryImpl) CountUnread(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var n int64
	err := r.notifications(ctx).Scopes(ownedBy(userID), visibleAt(now), unread).Count(&n).Error
	return n, err
}

// MarkRead stamps read_at once. Found reports whether the row exists for the
// user at all so callers can tell a repeat read from a foreign id.
func (r *repositoryImpl) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	var row models.Notification
	err := r.notifications(ctx).
		Scopes(ownedBy(userID)).
		Select("id", "read_at").
		Where("id = ?", notificationID).
		Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notificationMarkResult{}, nil
	case err != nil:
		return notificationMarkResult{}, err
	case row.ReadAt != nil:
		return notificationMarkResult{Found: true}, nil
	}

	res := r.notifications(ctx).
		Scopes(ownedBy(userID), unread).
		Where("id = ?", notificationID).
		UpdateColumn("read_at", now)
	if res.Error != nil {
		return notificationMarkResult{}, res.Error
	}
	return notificationMarkResult{Found: true, Updated: res.RowsAffected > 0}, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	res := r.notifications(ctx).Scopes(ownedBy(userID), unread).UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

// DeleteStale removes expired rows and read rows created before readBefore.
func (r *repositoryImpl) DeleteStale(ctx context.Context, tx *gorm.DB, now, readBefore time.Time) (int64, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	res := tx.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Or("read_at IS NOT NULL AND created_at < ?", readBefore).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
