package auctions

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
)

const (
	amountScale = 2
	// amountIntDigits matches the numeric(12,2) money columns.
	amountIntDigits = 10
)

// MaxAmount is the largest value a money column can store.
var MaxAmount = decimal.New(1, amountIntDigits).Sub(decimal.New(1, -amountScale))

// RoundAmount rounds to currency minor units.
func RoundAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(amountScale)
}

// ParseAmount accepts a positive decimal string no larger than MaxAmount and
// returns it rounded.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	// Rounding rescales the coefficient by 10^|exponent|, so magnitude is
	// bounded first. Anything under a tenth of a cent rounds to zero anyway.
	magnitude := int64(amount.NumDigits()) + int64(amount.Exponent())
	if magnitude > amountIntDigits || magnitude < -amountScale {
		return decimal.Zero, false
	}
	rounded := RoundAmount(amount)
	if !rounded.IsPositive() || rounded.GreaterThan(MaxAmount) {
		return decimal.Zero, false
	}
	return rounded, true
}

// MinimumNextBid is max(current bid, starting price) plus the increment.
func MinimumNextBid(listing *models.Listing) decimal.Decimal {
	starting := listing.StartingPrice.Decimal
	floor := starting
	if listing.CurrentBid.Valid && listing.CurrentBid.Decimal.GreaterThan(floor) {
		floor = listing.CurrentBid.Decimal
	}
	increment := decimal.Zero
	if listing.BidIncrement.Valid {
		increment = listing.BidIncrement.Decimal
	}
	return RoundAmount(floor.Add(increment))
}
