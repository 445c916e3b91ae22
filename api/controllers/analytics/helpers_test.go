package analytics

import (
	"context"
	"time"

	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/types"
)

type testAnalyticsService struct {
	last     types.AuctionActivityRequest
	response *types.AuctionActivityResponse
	err      error
}

func (s *testAnalyticsService) AuctionActivity(ctx context.Context, req types.AuctionActivityRequest) (*types.AuctionActivityResponse, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	if s.response == nil {
		s.response = &types.AuctionActivityResponse{}
	}
	return s.response, nil
}

func (s *testAnalyticsService) called() bool {
	return s.last.SellerStoreID != ""
}

func (s *testAnalyticsService) period() time.Duration {
	return s.last.End.Sub(s.last.Start)
}
