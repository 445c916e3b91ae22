package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Request is one notification addressed to one user.
type Request struct {
	UserID    uuid.UUID
	Type      enums.NotificationType
	Title     string
	Message   string
	Priority  enums.NotificationPriority
	ActionURL string
	Metadata  json.RawMessage
	GroupKey  *string
	ExpiresAt *time.Time
}

// Dispatcher persists notifications. It never reports failure to callers; errors are logged.
type Dispatcher struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

func NewDispatcher(repo Repository, tx txRunner, logg *logger.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{repo: repo, tx: tx, logg: logg, now: time.Now}, nil
}

// Notify stores the notification. A grouped notification replaces unread ones
// with the same group key; an already expired one is dropped.
func (d *Dispatcher) Notify(ctx context.Context, req Request) {
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"user_id":           req.UserID.String(),
		"notification_type": req.Type,
	})
	if err := validateRequest(&req); err != nil {
		d.logg.Warn(d.logg.WithField(logCtx, "error", err.Error()), "notification rejected")
		return
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(d.now()) {
		d.logg.Debug(logCtx, "notification expired before delivery")
		return
	}

	row := &models.Notification{
		UserID:    req.UserID,
		Type:      req.Type,
		Priority:  req.Priority,
		Title:     req.Title,
		Message:   req.Message,
		Metadata:  req.Metadata,
		GroupKey:  req.GroupKey,
		ExpiresAt: utcPtr(req.ExpiresAt),
	}
	if url := strings.TrimSpace(req.ActionURL); url != "" {
		row.ActionURL = &url
	}

	err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := d.repo.WithTx(tx)
		if req.GroupKey != nil {
			if _, err := repo.DeleteUnreadInGroup(ctx, req.UserID, *req.GroupKey); err != nil {
				return fmt.Errorf("replace grouped notifications: %w", err)
			}
		}
		return repo.Create(ctx, row)
	})
	if err != nil {
		d.logg.Error(logCtx, "notification dispatch failed", err)
		return
	}
	d.logg.Debug(d.logg.WithField(logCtx, "notification_id", row.ID.String()), "notification stored")
}

func validateRequest(req *Request) error {
	if req.UserID == uuid.Nil {
		return errors.New("user id required")
	}
	if !req.Type.IsValid() {
		return fmt.Errorf("unknown notification type %q", req.Type)
	}
	if req.Priority == "" {
		req.Priority = enums.NotificationPriorityNormal
	}
	if !req.Priority.IsValid() {
		return fmt.Errorf("unknown notification priority %q", req.Priority)
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return errors.New("title required")
	}
	if req.GroupKey != nil && strings.TrimSpace(*req.GroupKey) == "" {
		req.GroupKey = nil
	}
	if len(req.Metadata) > 0 && !json.Valid(req.Metadata) {
		return errors.New("metadata must be valid json")
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
