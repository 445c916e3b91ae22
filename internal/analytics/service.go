package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/query"
	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/types"
	"github.com/angelmondragon/auctionhouse-backend/pkg/bigquery"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/redis"
)

// DefaultReportTTL keeps a dashboard fresh enough while sparing BigQuery the
// same four queries on every page load.
const DefaultReportTTL = 5 * time.Minute

// Service provides seller reports built from auction events.
type Service interface {
	// AuctionActivity returns auction KPIs for one seller store.
	AuctionActivity(ctx context.Context, req types.AuctionActivityRequest) (*types.AuctionActivityResponse, error)
}

// ReportCache is the slice of the Redis client used to memoize reports.
type ReportCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Options struct {
	// Cache is optional; nil queries BigQuery every time.
	Cache  ReportCache
	TTL    time.Duration
	Logger *logger.Logger
}

type service struct {
	activity query.AuctionActivityService
	cache    ReportCache
	ttl      time.Duration
	logg     *logger.Logger
}

// NewService reads reports from the auction events table.
func NewService(client *bigquery.Client, table string, opts Options) (Service, error) {
	activity, err := query.NewAuctionActivityService(client, table)
	if err != nil {
		return nil, err
	}
	return newService(activity, opts), nil
}

func newService(activity query.AuctionActivityService, opts Options) *service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultReportTTL
	}
	return &service{activity: activity, cache: opts.Cache, ttl: opts.TTL, logg: opts.Logger}
}

// AuctionActivity is read-through: cache faults are logged and fall back to
// a live query.
func (s *service) AuctionActivity(ctx context.Context, req types.AuctionActivityRequest) (*types.AuctionActivityResponse, error) {
	if s.cache == nil {
		return s.activity.Query(ctx, req)
	}
	key := reportKey(req)
	ctx = s.logg.WithField(ctx, "report_key", key)

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var cached types.AuctionActivityResponse
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			return &cached, nil
		}
		s.logg.Warn(ctx, "analytics.report_cache_corrupt")
	case !errors.Is(err, redis.Nil):
		s.logg.Error(ctx, "analytics.report_cache_read_failed", err)
	}

	resp, err := s.activity.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(resp); err == nil {
		if err := s.cache.Set(ctx, key, encoded, s.ttl); err != nil {
			s.logg.Error(ctx, "analytics.report_cache_write_failed", err)
		}
	}
	return resp, nil
}

func reportKey(req types.AuctionActivityRequest) string {
	return redis.Key("analytics", "auction-activity", req.SellerStoreID,
		strconv.FormatInt(req.Start.Unix(), 10), strconv.FormatInt(req.End.Unix(), 10))
}
