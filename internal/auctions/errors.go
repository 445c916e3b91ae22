package auctions

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
)

// BidErrorKind enumerates the ways a bid can be refused.
type BidErrorKind int

const (
	BidErrorUnknown BidErrorKind = iota
	BidErrorNotFound
	BidErrorInvalidListingType
	BidErrorAuctionClosed
	BidErrorInvalidAmount
	BidErrorTooLow
	BidErrorAlreadyHighestBidder
	BidErrorTransient
	BidErrorInvalidBidder
)

func (k BidErrorKind) Reason() enums.BidRejectionReason {
	switch k {
	case BidErrorNotFound:
		return enums.BidRejectedNotFound
	case BidErrorInvalidListingType:
		return enums.BidRejectedInvalidListing
	case BidErrorAuctionClosed:
		return enums.BidRejectedAuctionClosed
	case BidErrorInvalidAmount:
		return enums.BidRejectedInvalidAmount
	case BidErrorTooLow:
		return enums.BidRejectedTooLow
	case BidErrorAlreadyHighestBidder:
		return enums.BidRejectedAlreadyHighest
	case BidErrorTransient:
		return enums.BidRejectedTransient
	case BidErrorInvalidBidder:
		return enums.BidRejectedInvalidBidder
	default:
		return enums.BidRejectedUnknown
	}
}

func (k BidErrorKind) String() string {
	return string(k.Reason())
}

// BidError is returned by PlaceBid for every refused bid.
type BidError struct {
	Kind       BidErrorKind
	MinimumBid decimal.Decimal
	Err        error
}

func newBidError(kind BidErrorKind) *BidError {
	return &BidError{Kind: kind}
}

func (e *BidError) Error() string {
	switch {
	case e.Kind == BidErrorTooLow:
		return fmt.Sprintf("bid too low: minimum is %s", e.MinimumBid.StringFixed(2))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *BidError) Unwrap() error {
	return e.Err
}

// APIError converts the bid failure into the coded error returned to clients.
func (e *BidError) APIError() *pkgerrors.Error {
	details := map[string]any{"reason": string(e.Kind.Reason())}
	var apiErr *pkgerrors.Error
	switch e.Kind {
	case BidErrorNotFound:
		apiErr = pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
	case BidErrorInvalidListingType:
		apiErr = pkgerrors.New(pkgerrors.CodeValidation, "listing is not an auction")
	case BidErrorAuctionClosed:
		apiErr = pkgerrors.New(pkgerrors.CodeStateConflict, "auction has ended")
	case BidErrorInvalidAmount:
		apiErr = pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be a positive value")
	case BidErrorTooLow:
		details["minimum_bid"] = e.MinimumBid.StringFixed(2)
		apiErr = pkgerrors.New(pkgerrors.CodeConflict, "bid is below the minimum")
	case BidErrorAlreadyHighestBidder:
		apiErr = pkgerrors.New(pkgerrors.CodeConflict, "you already hold the highest bid")
	case BidErrorInvalidBidder:
		apiErr = pkgerrors.New(pkgerrors.CodeValidation, "bidder id is required")
	case BidErrorTransient:
		return pkgerrors.Wrap(pkgerrors.CodeTransient, e.Err, "auction is busy, retry the bid").WithDetails(details)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, e, "bid failed")
	}
	return apiErr.WithDetails(details)
}

// AsBidError unwraps err into a BidError when it is one.
func AsBidError(err error) (*BidError, bool) {
	var bidErr *BidError
	if errors.As(err, &bidErr) {
		return bidErr, true
	}
	return nil, false
}

// ErrSelectionFailed wraps a failure to load the batch of ended auctions.
var ErrSelectionFailed = errors.New("auction selection failed")
