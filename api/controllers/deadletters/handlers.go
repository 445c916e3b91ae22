// Package deadletters exposes the outbox dead-letter table to operators.
package deadletters

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/auctionhouse-backend/api/controllers"
	"github.com/angelmondragon/auctionhouse-backend/api/responses"
	"github.com/angelmondragon/auctionhouse-backend/api/validators"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/pagination"
)

type Store interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	Replay(ctx context.Context, eventID uuid.UUID) (bool, error)
}

type entryView struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	Error         *string         `json:"error,omitempty"`
	Attempts      int             `json:"attempts"`
	FailedAt      time.Time       `json:"failed_at"`
}

func List(store Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := store.List(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		out := make([]entryView, 0, len(rows))
		for _, row := range rows {
			out = append(out, entryView{
				EventID:       row.EventID,
				EventType:     string(row.EventType),
				AggregateType: string(row.AggregateType),
				AggregateID:   row.AggregateID,
				Payload:       row.Payload,
				Reason:        string(row.ErrorReason),
				Error:         row.ErrorMessage,
				Attempts:      row.AttemptCount,
				FailedAt:      row.FailedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// Replay hands a dead-lettered event back to the relay.
func Replay(store Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}
		eventID, err := controllers.PathUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithField(r.Context(), "event_id", eventID.String())
		ok, err := store.Replay(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replay dead letter"))
			return
		}
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found"))
			return
		}
		logg.Info(ctx, "outbox.dead_letter_replayed")
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]bool{"requeued": true})
	}
}
