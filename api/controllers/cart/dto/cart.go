package cartdto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
)

// Cart is the buyer's active cart as exposed through the API.
type Cart struct {
	ID          uuid.UUID        `json:"id"`
	BuyerUserID uuid.UUID        `json:"buyer_user_id"`
	Status      enums.CartStatus `json:"status"`
	Currency    string           `json:"currency"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	Items       []CartItem       `json:"items"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type CartItem struct {
	ID            uuid.UUID            `json:"id"`
	ListingID     uuid.UUID            `json:"listing_id"`
	VendorStoreID uuid.UUID            `json:"vendor_store_id"`
	Quantity      int                  `json:"quantity"`
	UnitPrice     decimal.Decimal      `json:"unit_price"`
	LineTotal     decimal.Decimal      `json:"line_total"`
	Source        enums.CartItemSource `json:"source"`
	BidAmount     *decimal.Decimal     `json:"bid_amount,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}
