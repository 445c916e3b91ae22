package auctions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox/payloads"
)

const cartActionURL = "/cart"

func auctionActionURL(id uuid.UUID) string {
	return "/auctions/" + id.String()
}

// GroupKey collapses extension alerts for one auction in the inbox.
func GroupKey(id uuid.UUID) string {
	return "auction:" + id.String()
}

type OutbidMetadata struct {
	AuctionID  uuid.UUID `json:"auction_id"`
	NewAmount  string    `json:"new_amount"`
	MinimumBid string    `json:"minimum_bid"`
}

type BidPlacedMetadata struct {
	AuctionID uuid.UUID `json:"auction_id"`
	BidID     uuid.UUID `json:"bid_id"`
	Amount    string    `json:"amount"`
	EndsAt    time.Time `json:"ends_at"`
}

type AuctionExtendedMetadata struct {
	AuctionID uuid.UUID `json:"auction_id"`
	NewEndsAt time.Time `json:"new_ends_at"`
}

type AuctionWonMetadata struct {
	AuctionID       uuid.UUID `json:"auction_id"`
	Amount          string    `json:"amount"`
	PaymentDeadline time.Time `json:"payment_deadline"`
}

type AuctionSoldMetadata struct {
	AuctionID uuid.UUID `json:"auction_id"`
	WinnerID  uuid.UUID `json:"winner_id"`
	Amount    string    `json:"amount"`
}

type AuctionLostMetadata struct {
	AuctionID   uuid.UUID `json:"auction_id"`
	FinalAmount string    `json:"final_amount"`
}

type AuctionNoBidsMetadata struct {
	AuctionID uuid.UUID `json:"auction_id"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func outbidNotification(listing *models.Listing, userID uuid.UUID, amount, minimum decimal.Decimal) payloads.NotificationRequestedEvent {
	return payloads.NotificationRequestedEvent{
		UserID:    userID,
		Type:      enums.NotificationTypeOutbid,
		Priority:  enums.NotificationPriorityHigh,
		Title:     "You've been outbid",
		Message:   fmt.Sprintf("Someone bid $%s on %q. Bid at least $%s to take the lead.", money(amount), listing.Title, money(minimum)),
		ActionURL: auctionActionURL(listing.ID),
		Metadata: mustMetadata(OutbidMetadata{
			AuctionID:  listing.ID,
			NewAmount:  money(amount),
			MinimumBid: money(minimum),
		}),
	}
}

func bidPlacedNotification(listing *models.Listing, userID, bidID uuid.UUID, amount decimal.Decimal, endsAt time.Time) payloads.NotificationRequestedEvent {
	return payloads.NotificationRequestedEvent{
		UserID:    userID,
		Type:      enums.NotificationTypeBidPlaced,
		Priority:  enums.NotificationPriorityNormal,
		Title:     "Bid placed",
		Message:   fmt.Sprintf("Your $%s bid on %q is the highest.", money(amount), listing.Title),
		ActionURL: auctionActionURL(listing.ID),
		Metadata: mustMetadata(BidPlacedMetadata{
			AuctionID: listing.ID,
			BidID:     bidID,
			Amount:    money(amount),
			EndsAt:    endsAt,
		}),
	}
}

func extendedNotification(listing *models.Listing, userID uuid.UUID, newEndsAt time.Time) payloads.NotificationRequestedEvent {
	group := GroupKey(listing.ID)
	expires := newEndsAt
	return payloads.NotificationRequestedEvent{
		UserID:    userID,
		Type:      enums.NotificationTypeAuctionExtended,
		Priority:  enums.NotificationPriorityNormal,
		Title:     "Auction extended",
		Message:   fmt.Sprintf("A late bid extended %q until %s.", listing.Title, newEndsAt.UTC().Format(time.RFC3339)),
		ActionURL: auctionActionURL(listing.ID),
		Metadata: mustMetadata(AuctionExtendedMetadata{
			AuctionID: listing.ID,
			NewEndsAt: newEndsAt,
		}),
		GroupKey:  &group,
		ExpiresAt: &expires,
	}
}

func wonNotification(listing *models.Listing, winnerID uuid.UUID, amount decimal.Decimal, deadline time.Time) payloads.NotificationRequestedEvent {
	return payloads.NotificationRequestedEvent{
		UserID:    winnerID,
		Type:      enums.NotificationTypeAuctionWon,
		Priority:  enums.NotificationPriorityUrgent,
		Title:     "You won the auction",
		Message:   fmt.Sprintf("You won %q for $%s. Complete payment by %s.", listing.Title, money(amount), deadline.UTC().Format(time.RFC3339)),
		ActionURL: cartActionURL,
		Metadata: mustMetadata(AuctionWonMetadata{
			AuctionID:       listing.ID,
			Amount:          money(amount),
			PaymentDeadline: deadline,
		}),
	}
}

func soldNotification(listing *models.Listing, sellerID, winnerID uuid.UUID, amount decimal.Decimal) payloads.NotificationRequestedEvent {
	return payloads.NotificationRequestedEvent{
		UserID:    sellerID,
		Type:      enums.NotificationTypeAuctionSold,
		Priority:  enums.NotificationPriorityHigh,
		Title:     "Your auction sold",
		Message:   fmt.Sprintf("%q sold for $%s.", listing.Title, money(amount)),
		ActionURL: auctionActionURL(listing.ID),
		Metadata: mustMetadata(AuctionSoldMetadata{
			AuctionID: listing.ID,
			WinnerID:  winnerID,
			Amount:    money(amount),
		}),
	}
}

func lostNotification(listing *models.Listing, userID uuid.UUID, amount decimal.Decimal) payloads.NotificationRequestedEvent {
	return payloads.NotificationRequestedEvent{
		UserID:    userID,
		Type:      enums.NotificationTypeAuctionLost,
		Priority:  enums.NotificationPriorityLow,
		Title:     "Auction ended",
		Message:   fmt.Sprintf("%q closed at $%s. Better luck next time.", listing.Title, money(amount)),
		ActionURL: auctionActionURL(listing.ID),
		Metadata: mustMetadata(AuctionLostMetadata{
			AuctionID:   listing.ID,
			FinalAmount: money(amount),
		}),
	}
}

func noBidsNotification(listing *models.Listing, sellerID uuid.UUID) payloads.NotificationRequestedEvent {
	return payloads.NotificationRequestedEvent{
		UserID:    sellerID,
		Type:      enums.NotificationTypeAuctionNoBids,
		Priority:  enums.NotificationPriorityNormal,
		Title:     "Auction ended without bids",
		Message:   fmt.Sprintf("%q ended without any bids.", listing.Title),
		ActionURL: auctionActionURL(listing.ID),
		Metadata:  mustMetadata(AuctionNoBidsMetadata{AuctionID: listing.ID}),
	}
}

// The metadata structs only hold strings, ids and times.
func mustMetadata(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal notification metadata: %v", err))
	}
	return raw
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

func emitNotifications(ctx context.Context, tx *gorm.DB, emitter outboxEmitter, actor *outbox.ActorRef, occurredAt time.Time, requests ...payloads.NotificationRequestedEvent) error {
	for _, req := range requests {
		if err := emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   req.UserID,
			Actor:         actor,
			Data:          req,
			OccurredAt:    occurredAt,
		}); err != nil {
			return fmt.Errorf("emit %s notification: %w", req.Type, err)
		}
	}
	return nil
}
