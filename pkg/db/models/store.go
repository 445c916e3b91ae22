package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the shop that owns listings. OwnerID is the seller.
type Store struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Store) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
