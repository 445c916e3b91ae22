package auctions

import (
	"time"

	"github.com/google/uuid"

	auctionsvc "github.com/angelmondragon/auctionhouse-backend/internal/auctions"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
)

type placeBidResponse struct {
	BidID          uuid.UUID `json:"bid_id"`
	AcceptedAmount string    `json:"accepted_amount"`
	Extended       bool      `json:"extended"`
	AuctionEndsAt  time.Time `json:"auction_ends_at"`
}

func newPlaceBidResponse(result auctionsvc.PlaceBidResult) placeBidResponse {
	return placeBidResponse{
		BidID:          result.BidID,
		AcceptedAmount: result.AcceptedAmount.StringFixed(2),
		Extended:       result.Extended,
		AuctionEndsAt:  result.AuctionEndsAt.UTC(),
	}
}

type bidResponse struct {
	ID        uuid.UUID `json:"id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    string    `json:"amount"`
	IsWinning bool      `json:"is_winning"`
	CreatedAt time.Time `json:"created_at"`
}

func newBidResponses(bids []models.Bid) []bidResponse {
	out := make([]bidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, bidResponse{
			ID:        b.ID,
			BidderID:  b.BidderID,
			Amount:    b.Amount.StringFixed(2),
			IsWinning: b.IsWinning,
			CreatedAt: b.CreatedAt,
		})
	}
	return out
}
