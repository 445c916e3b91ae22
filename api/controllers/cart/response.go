package cart

import (
	"github.com/shopspring/decimal"

	cartdto "github.com/angelmondragon/auctionhouse-backend/api/controllers/cart/dto"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
)

func newCart(record *models.CartRecord) cartdto.Cart {
	subtotal := decimal.Zero
	items := make([]cartdto.CartItem, 0, len(record.Items))
	for _, item := range record.Items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		subtotal = subtotal.Add(line)

		dto := cartdto.CartItem{
			ID:            item.ID,
			ListingID:     item.ListingID,
			VendorStoreID: item.VendorStoreID,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			LineTotal:     line,
			Source:        item.Source,
			CreatedAt:     item.CreatedAt,
		}
		if item.BidAmount.Valid {
			amount := item.BidAmount.Decimal
			dto.BidAmount = &amount
		}
		items = append(items, dto)
	}

	return cartdto.Cart{
		ID:          record.ID,
		BuyerUserID: record.BuyerUserID,
		Status:      record.Status,
		Currency:    record.Currency,
		Subtotal:    subtotal,
		Items:       items,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}
