package types

import "time"

// AuctionActivityRequest scopes the seller auction dashboard.
type AuctionActivityRequest struct {
	SellerStoreID string
	Start         time.Time
	End           time.Time
}

// TimeSeriesPoint describes a single date/value pair returned by the query service.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// LabelValue is a top-N entry keyed by auction id.
type LabelValue struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// AuctionActivityResponse wraps the auction KPIs for the dashboard.
type AuctionActivityResponse struct {
	BidsSeries       []TimeSeriesPoint `json:"bids"`
	SoldSeriesCents  []TimeSeriesPoint `json:"sold_cents"`
	Extensions       int64             `json:"extensions"`
	Finalized        int64             `json:"finalized"`
	EndedWithoutBids int64             `json:"ended_without_bids"`
	SellThroughRate  float64           `json:"sell_through_rate"`
	TopAuctions      []LabelValue      `json:"top_auctions"`
}
