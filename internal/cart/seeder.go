package cart

import (
	"context"
	"fmt"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AuctionWin is the cart line owed to an auction winner.
type AuctionWin struct {
	BuyerID       uuid.UUID
	ListingID     uuid.UUID
	VendorStoreID uuid.UUID
	Amount        decimal.Decimal
}

// Seeder drops won auctions into the winner's active cart.
type Seeder struct {
	repo Store
}

func NewSeeder(repo Store) *Seeder {
	return &Seeder{repo: repo}
}

// SeedAuctionWin runs inside the caller's transaction. Repeating it for the same
// cart and listing returns the existing line.
func (s *Seeder) SeedAuctionWin(ctx context.Context, tx *gorm.DB, win AuctionWin) (*models.CartItem, error) {
	repo := s.repo.WithTx(tx)
	record, err := repo.EnsureActiveCart(ctx, win.BuyerID)
	if err != nil {
		return nil, fmt.Errorf("ensure cart: %w", err)
	}
	item, _, err := repo.UpsertAuctionItem(ctx, models.CartItem{
		CartID:        record.ID,
		ListingID:     win.ListingID,
		VendorStoreID: win.VendorStoreID,
		Quantity:      1,
		UnitPrice:     win.Amount,
		BidAmount:     decimal.NewNullDecimal(win.Amount),
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
