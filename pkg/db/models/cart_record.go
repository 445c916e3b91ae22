package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
)

// CartRecord is a buyer's cart. At most one active cart exists per buyer.
type CartRecord struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	BuyerUserID uuid.UUID        `gorm:"column:buyer_user_id;type:uuid;not null;index:cart_records_active_buyer_idx,unique,where:status = 'active'"`
	Status      enums.CartStatus `gorm:"column:status;type:cart_status;not null;default:'active'"`
	Currency    string           `gorm:"column:currency;not null;default:'USD'"`
	ConvertedAt *time.Time       `gorm:"column:converted_at"`
	Items       []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
