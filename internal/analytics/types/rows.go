package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// AuctionEventRow mirrors the auction_events BigQuery schema. One row per
// bid_placed, auction_extended or auction_finalized event.
type AuctionEventRow struct {
	EventID       string                  `bigquery:"event_id"`
	EventType     string                  `bigquery:"event_type"`
	OccurredAt    time.Time               `bigquery:"occurred_at"`
	AuctionID     string                  `bigquery:"auction_id"`
	SellerStoreID *string                 `bigquery:"seller_store_id"`
	BidderID      *string                 `bigquery:"bidder_id"`
	BidID         *string                 `bigquery:"bid_id"`
	AmountCents   *int64                  `bigquery:"amount_cents"`
	Extended      *bool                   `bigquery:"extended"`
	EndsAt        cbigquery.NullTimestamp `bigquery:"ends_at"`
	Outcome       *string                 `bigquery:"outcome"`
	BidderCount   *int64                  `bigquery:"bidder_count"`
	Payload       cbigquery.NullJSON      `bigquery:"payload"`
}
