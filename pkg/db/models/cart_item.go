package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
)

// CartItem is one listing line in a CartRecord. (cart_id, listing_id) is unique.
type CartItem struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	CartID        uuid.UUID            `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:cart_items_cart_listing_idx,priority:1"`
	ListingID     uuid.UUID            `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:cart_items_cart_listing_idx,priority:2"`
	VendorStoreID uuid.UUID            `gorm:"column:vendor_store_id;type:uuid;not null"`
	Quantity      int                  `gorm:"column:quantity;not null"`
	UnitPrice     decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Source        enums.CartItemSource `gorm:"column:source;type:cart_item_source;not null;default:'manual'"`
	BidAmount     decimal.NullDecimal  `gorm:"column:bid_amount;type:numeric(12,2)"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
