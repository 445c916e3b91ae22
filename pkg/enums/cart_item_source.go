package enums

// CartItemSource records how a line landed in a cart. Auction lines come from
// settlement and carry the winning bid as their price.
type CartItemSource string

const (
	CartItemSourceManual  CartItemSource = "manual"
	CartItemSourceAuction CartItemSource = "auction"
)

var cartItemSources = values[CartItemSource]{CartItemSourceManual, CartItemSourceAuction}

func (c CartItemSource) IsValid() bool { return cartItemSources.has(c) }
