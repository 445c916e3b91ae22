package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultNotificationRetention = 30 * 24 * time.Hour
	defaultOutboxRetention       = 7 * 24 * time.Hour
	outboxMinAttempts            = 10
)

type notificationsCleanupRepo interface {
	DeleteStale(ctx context.Context, tx *gorm.DB, now, readBefore time.Time) (int64, error)
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// purgeFunc deletes whatever is stale as of now and reports the row count
// plus the log fields describing the window it used.
type purgeFunc func(ctx context.Context, tx *gorm.DB, now time.Time) (int64, map[string]any, error)

// purgeJob is a single-transaction delete run on a schedule.
type purgeJob struct {
	name  string
	logg  *logger.Logger
	db    txRunner
	now   func() time.Time
	purge purgeFunc
}

func newPurgeJob(name string, logg *logger.Logger, runner txRunner, purge purgeFunc) (Job, error) {
	switch {
	case logg == nil:
		return nil, errors.New("logger required")
	case runner == nil:
		return nil, errors.New("db runner required")
	}
	return &purgeJob{name: name, logg: logg, db: runner, now: db.NowUTC, purge: purge}, nil
}

func (j *purgeJob) Name() string { return j.name }

func (j *purgeJob) Run(ctx context.Context) error {
	now := j.now().UTC()

	var (
		deleted int64
		fields  map[string]any
	)
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, fields, err = j.purge(ctx, tx, now)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}

	if fields == nil {
		fields = map[string]any{}
	}
	fields["rows_deleted"] = deleted
	j.logg.Info(j.logg.WithFields(ctx, fields), j.name+" complete")
	return nil
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationsCleanupRepo
	// Retention bounds how long read notifications are kept. Expired ones go regardless.
	Retention time.Duration
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("notifications repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultNotificationRetention
	}
	repo := params.Repository
	return newPurgeJob("notification-cleanup", params.Logger, params.DB,
		func(ctx context.Context, tx *gorm.DB, now time.Time) (int64, map[string]any, error) {
			readBefore := now.Add(-retention)
			rows, err := repo.DeleteStale(ctx, tx, now, readBefore)
			return rows, map[string]any{
				"read_before": readBefore,
				"retention":   retention.String(),
			}, err
		})
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	Retention  time.Duration
	// MinAttempts marks unpublished rows as dead; match the publisher's max attempts.
	MinAttempts int
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = outboxMinAttempts
	}
	repo := params.Repository
	return newPurgeJob("outbox-retention", params.Logger, params.DB,
		func(ctx context.Context, tx *gorm.DB, now time.Time) (int64, map[string]any, error) {
			cutoff := now.Add(-retention)
			rows, err := repo.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
			return rows, map[string]any{
				"cutoff":       cutoff,
				"retention":    retention.String(),
				"min_attempts": minAttempts,
			}, err
		})
}
