package cart

import (
	"net/http"

	"github.com/angelmondragon/auctionhouse-backend/api/controllers"
	"github.com/angelmondragon/auctionhouse-backend/api/responses"
	cartsvc "github.com/angelmondragon/auctionhouse-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

// CartFetch exposes the caller's active cart, including items seeded by won auctions.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		buyerID, err := controllers.UserIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.GetActiveCart(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCart(record))
	}
}
