package router

import (
	"context"
	"fmt"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/types"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox/payloads"
)

type rowBuilder func(envelope types.Envelope, payload any) (types.AuctionEventRow, error)

// typed adapts a builder for one payload type, rejecting anything else.
func typed[T any](build func(types.Envelope, *T) types.AuctionEventRow) rowBuilder {
	return func(envelope types.Envelope, payload any) (types.AuctionEventRow, error) {
		event, ok := payload.(*T)
		if !ok {
			return types.AuctionEventRow{}, fmt.Errorf("%s: unexpected payload %T", envelope.EventType, payload)
		}
		return build(envelope, event), nil
	}
}

type auctionEventHandler struct {
	writer Writer
	logg   *logger.Logger
	build  rowBuilder
}

func (h *auctionEventHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"auction_id": envelope.AggregateID,
	})

	row, err := h.build(envelope, payload)
	if err != nil {
		h.logg.Error(logCtx, "failed to build auction event row", err)
		return err
	}
	if err := h.writer.InsertAuctionEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert auction event row", err)
		return err
	}
	h.logg.Info(logCtx, "auction event row inserted")
	return nil
}

func baseRow(envelope types.Envelope, auctionID string) types.AuctionEventRow {
	row := types.AuctionEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt.UTC(),
		AuctionID:  auctionID,
	}
	if len(envelope.Payload) > 0 {
		row.Payload = cbigquery.NullJSON{Valid: true, JSONVal: string(envelope.Payload)}
	}
	return row
}

func bidPlacedRow(envelope types.Envelope, event *payloads.BidPlacedEvent) types.AuctionEventRow {
	row := baseRow(envelope, event.AuctionID.String())
	row.SellerStoreID = uuidPtr(&event.SellerStoreID)
	row.BidderID = uuidPtr(&event.BidderID)
	row.BidID = uuidPtr(&event.BidID)
	row.AmountCents = centsPtr(event.Amount)
	row.Extended = boolPtr(event.Extended)
	row.EndsAt = cbigquery.NullTimestamp{Timestamp: event.EndsAt.UTC(), Valid: !event.EndsAt.IsZero()}
	return row
}

func auctionExtendedRow(envelope types.Envelope, event *payloads.AuctionExtendedEvent) types.AuctionEventRow {
	row := baseRow(envelope, event.AuctionID.String())
	row.BidID = uuidPtr(&event.TriggerBidID)
	row.Extended = boolPtr(true)
	row.EndsAt = cbigquery.NullTimestamp{Timestamp: event.NewEndsAt.UTC(), Valid: !event.NewEndsAt.IsZero()}
	return row
}

func auctionFinalizedRow(envelope types.Envelope, event *payloads.AuctionFinalizedEvent) types.AuctionEventRow {
	row := baseRow(envelope, event.AuctionID.String())
	row.SellerStoreID = uuidPtr(&event.SellerStoreID)
	row.BidderID = uuidPtr(event.WinnerID)
	row.BidID = uuidPtr(event.WinningBidID)
	if event.FinalAmount != nil {
		row.AmountCents = centsPtr(*event.FinalAmount)
	}
	row.Outcome = stringPtr(event.Outcome)
	row.BidderCount = int64Ptr(int64(event.BidderCount))
	row.EndsAt = cbigquery.NullTimestamp{Timestamp: event.EndedAt.UTC(), Valid: !event.EndedAt.IsZero()}
	return row
}
