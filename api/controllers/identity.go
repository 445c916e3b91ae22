package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/auctionhouse-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
)

// UserIDFromRequest returns the authenticated caller or an unauthorized error.
func UserIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// PathUUID parses a chi URL parameter as a UUID.
func PathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chiURLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+param).
			WithDetails(map[string]any{"field": param})
	}
	return id, nil
}
