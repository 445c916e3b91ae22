package auctions

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type placeBidRequest struct {
	Amount bidAmount `json:"amount" validate:"required"`
}

// bidAmount accepts the amount as a JSON string or number and keeps its literal text,
// so "105.005" reaches the rounding rules untouched by float conversion.
type bidAmount string

func (a *bidAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = bidAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a decimal string or number")
	}
	*a = bidAmount(n.String())
	return nil
}
