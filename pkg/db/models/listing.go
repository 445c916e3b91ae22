package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
)

// Listing is the canonical marketplace listing. Auction listings carry the
// auction_* columns; regular listings leave them null.
type Listing struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	StoreID         uuid.UUID            `gorm:"column:store_id;type:uuid;not null;index"`
	Title           string               `gorm:"column:title;not null"`
	Type            enums.ListingType    `gorm:"column:type;type:listing_type;not null;default:'regular'"`
	Price           decimal.Decimal      `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	IsActive        bool                 `gorm:"column:is_active;not null;default:true"`
	AuctionStatus   *enums.AuctionStatus `gorm:"column:auction_status;type:auction_status"`
	StartingPrice   decimal.NullDecimal  `gorm:"column:starting_price;type:numeric(12,2)"`
	CurrentBid      decimal.NullDecimal  `gorm:"column:current_bid;type:numeric(12,2)"`
	BidIncrement    decimal.NullDecimal  `gorm:"column:bid_increment;type:numeric(12,2)"`
	BuyNowPrice     decimal.NullDecimal  `gorm:"column:buy_now_price;type:numeric(12,2)"`
	AuctionEndsAt   *time.Time           `gorm:"column:auction_ends_at"`
	WinnerID        *uuid.UUID           `gorm:"column:winner_id;type:uuid"`
	EndedAt         *time.Time           `gorm:"column:ended_at"`
	PaymentDeadline *time.Time           `gorm:"column:payment_deadline"`
	Version         int                  `gorm:"column:version;not null;default:0"`
	Inventory       *InventoryItem       `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Listing) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
