package payloads

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
)

// BidPlacedEvent records an accepted bid.
type BidPlacedEvent struct {
	AuctionID        uuid.UUID       `json:"auction_id"`
	BidID            uuid.UUID       `json:"bid_id"`
	BidderID         uuid.UUID       `json:"bidder_id"`
	SellerStoreID    uuid.UUID       `json:"seller_store_id"`
	Amount           decimal.Decimal `json:"amount"`
	PreviousBidderID *uuid.UUID      `json:"previous_bidder_id,omitempty"`
	Extended         bool            `json:"extended"`
	EndsAt           time.Time       `json:"ends_at"`
	PlacedAt         time.Time       `json:"placed_at"`
}

// AuctionExtendedEvent is emitted when a late bid pushes the deadline out.
type AuctionExtendedEvent struct {
	AuctionID      uuid.UUID `json:"auction_id"`
	TriggerBidID   uuid.UUID `json:"trigger_bid_id"`
	PreviousEndsAt time.Time `json:"previous_ends_at"`
	NewEndsAt      time.Time `json:"new_ends_at"`
}

// AuctionFinalizedEvent describes the outcome of the active to ended transition.
type AuctionFinalizedEvent struct {
	AuctionID       uuid.UUID        `json:"auction_id"`
	SellerStoreID   uuid.UUID        `json:"seller_store_id"`
	Outcome         string           `json:"outcome"`
	WinnerID        *uuid.UUID       `json:"winner_id,omitempty"`
	WinningBidID    *uuid.UUID       `json:"winning_bid_id,omitempty"`
	FinalAmount     *decimal.Decimal `json:"final_amount,omitempty"`
	BidderCount     int              `json:"bidder_count"`
	EndedAt         time.Time        `json:"ended_at"`
	PaymentDeadline *time.Time       `json:"payment_deadline,omitempty"`
}

// NotificationRequestedEvent asks the notification worker to deliver one message.
type NotificationRequestedEvent struct {
	UserID    uuid.UUID                  `json:"user_id"`
	Type      enums.NotificationType     `json:"type"`
	Priority  enums.NotificationPriority `json:"priority"`
	Title     string                     `json:"title"`
	Message   string                     `json:"message"`
	ActionURL string                     `json:"action_url,omitempty"`
	Metadata  json.RawMessage            `json:"metadata,omitempty"`
	GroupKey  *string                    `json:"group_key,omitempty"`
	ExpiresAt *time.Time                 `json:"expires_at,omitempty"`
}
