package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
)

// Notification stores in-app notifications addressed to a user.
type Notification struct {
	ID        uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.NotificationType     `gorm:"column:type;type:notification_type;not null"`
	Priority  enums.NotificationPriority `gorm:"column:priority;type:notification_priority;not null;default:'normal'"`
	Title     string                     `gorm:"column:title;not null"`
	Message   string                     `gorm:"column:message;not null"`
	ActionURL *string                    `gorm:"column:action_url"`
	Metadata  json.RawMessage            `gorm:"column:metadata;type:jsonb"`
	GroupKey  *string                    `gorm:"column:group_key;index"`
	ExpiresAt *time.Time                 `gorm:"column:expires_at"`
	ReadAt    *time.Time                 `gorm:"column:read_at"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
