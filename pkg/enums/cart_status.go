package enums

// CartStatus flips from active to converted at checkout.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
)

var cartStatuses = values[CartStatus]{CartStatusActive, CartStatusConverted}

func (c CartStatus) IsValid() bool { return cartStatuses.has(c) }

func ParseCartStatus(raw string) (CartStatus, error) {
	return cartStatuses.parse("cart status", raw)
}
