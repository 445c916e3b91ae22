package router

import (
	"context"

	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/types"
)

type fakeWriter struct {
	inserted []types.AuctionEventRow
	err      error
}

func (f *fakeWriter) InsertAuctionEvent(_ context.Context, row types.AuctionEventRow) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, row)
	return nil
}
