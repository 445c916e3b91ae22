package analytics

import (
	"net/http"

	"github.com/angelmondragon/auctionhouse-backend/api/controllers"
	"github.com/angelmondragon/auctionhouse-backend/api/responses"
	"github.com/angelmondragon/auctionhouse-backend/internal/analytics"
	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

// AuctionActivity reports bid volume and sell-through for one seller store over a window.
func AuctionActivity(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics unavailable"))
			return
		}

		storeID, err := controllers.PathUUID(r, "storeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		span, err := parseWindow(r.URL.Query(), now())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := service.AuctionActivity(ctx, types.AuctionActivityRequest{
			SellerStoreID: storeID.String(),
			Start:         span.Start,
			End:           span.End,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
