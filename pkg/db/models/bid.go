package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bid is an accepted bid. Rows are append-only apart from is_winning flipping to false.
type Bid struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	AuctionID uuid.UUID       `gorm:"column:auction_id;type:uuid;not null;index:bids_auction_created_idx,priority:1;index:bids_one_winner_idx,unique,where:is_winning = true"`
	BidderID  uuid.UUID       `gorm:"column:bidder_id;type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	IsWinning bool            `gorm:"column:is_winning;not null;default:false"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime;index:bids_auction_created_idx,priority:2"`
}

func (b *Bid) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
