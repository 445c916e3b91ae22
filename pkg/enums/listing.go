package enums

type ListingType string

const (
	ListingTypeRegular ListingType = "regular"
	ListingTypeAuction ListingType = "auction"
)

var listingTypes = values[ListingType]{ListingTypeRegular, ListingTypeAuction}

func (l ListingType) IsValid() bool { return listingTypes.has(l) }

func ParseListingType(raw string) (ListingType, error) {
	return listingTypes.parse("listing type", raw)
}

// AuctionStatus moves from active to ended exactly once, at settlement.
type AuctionStatus string

const (
	AuctionStatusActive AuctionStatus = "active"
	AuctionStatusEnded  AuctionStatus = "ended"
)

var auctionStatuses = values[AuctionStatus]{AuctionStatusActive, AuctionStatusEnded}

func (a AuctionStatus) IsValid() bool { return auctionStatuses.has(a) }

func ParseAuctionStatus(raw string) (AuctionStatus, error) {
	return auctionStatuses.parse("auction status", raw)
}
