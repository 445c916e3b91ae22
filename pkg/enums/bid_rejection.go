package enums

// BidRejectionReason labels why a bid was refused. Used for metrics and API details.
type BidRejectionReason string

const (
	BidRejectedNotFound       BidRejectionReason = "not_found"
	BidRejectedInvalidListing BidRejectionReason = "invalid_listing_type"
	BidRejectedAuctionClosed  BidRejectionReason = "auction_closed"
	BidRejectedInvalidAmount  BidRejectionReason = "invalid_amount"
	BidRejectedTooLow         BidRejectionReason = "bid_too_low"
	BidRejectedAlreadyHighest BidRejectionReason = "already_highest_bidder"
	BidRejectedInvalidBidder  BidRejectionReason = "invalid_bidder"
	BidRejectedTransient      BidRejectionReason = "transient_error"
	BidRejectedUnknown        BidRejectionReason = "unknown"
)
