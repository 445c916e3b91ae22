package auctions

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/auctionhouse-backend/api/controllers"
	"github.com/angelmondragon/auctionhouse-backend/api/responses"
	"github.com/angelmondragon/auctionhouse-backend/api/validators"
	auctionsvc "github.com/angelmondragon/auctionhouse-backend/internal/auctions"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/pagination"
)

// BidPlacer submits bids.
type BidPlacer interface {
	PlaceBid(ctx context.Context, in auctionsvc.PlaceBidInput) (auctionsvc.PlaceBidResult, error)
}

type AuctionReader interface {
	GetAuction(ctx context.Context, id uuid.UUID) (*auctionsvc.AuctionView, error)
	ListBids(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.Bid, error)
}

// BidService is the full bidding surface mounted by the router.
type BidService interface {
	BidPlacer
	AuctionReader
}

type Finalizer interface {
	FinalizeEndedAuctions(ctx context.Context, now time.Time) (auctionsvc.FinalizationReport, error)
}

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

// PlaceBid submits a bid for the authenticated caller.
func PlaceBid(svc BidPlacer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bid service unavailable"))
			return
		}

		bidderID, err := controllers.UserIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		auctionID, err := controllers.PathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeBidRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithAuctionID(ctx, auctionID.String())
		}

		result, err := svc.PlaceBid(ctx, auctionsvc.PlaceBidInput{
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    string(payload.Amount),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, toAPIError(err))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newPlaceBidResponse(result))
	}
}

func GetAuction(svc AuctionReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}

		auctionID, err := controllers.PathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetAuction(r.Context(), auctionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// ListBids returns the auction's bid history, newest first.
func ListBids(svc AuctionReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}

		auctionID, err := controllers.PathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bids, err := svc.ListBids(r.Context(), auctionID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": newBidResponses(bids)})
	}
}

// AdminFinalize runs one settlement sweep on demand and returns its report.
func AdminFinalize(finalizer Finalizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if finalizer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "finalizer unavailable"))
			return
		}

		report, err := finalizer.FinalizeEndedAuctions(r.Context(), timeNowUTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select ended auctions"))
			return
		}
		if logg != nil {
			if failures := report.Err(); failures != nil {
				logg.Warn(logg.WithField(r.Context(), "failures", failures.Error()), "manual finalization completed with errors")
			}
		}
		responses.WriteSuccess(w, report)
	}
}

func toAPIError(err error) error {
	if bidErr, ok := auctionsvc.AsBidError(err); ok {
		return bidErr.APIError()
	}
	return err
}
