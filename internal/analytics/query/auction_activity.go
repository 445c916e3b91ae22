package query

import (
	"context"
	"errors"
	"fmt"

	cloudbigquery "cloud.google.com/go/bigquery"
	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/types"
	"github.com/angelmondragon/auctionhouse-backend/pkg/bigquery"
	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
	"google.golang.org/api/iterator"
)

const (
	bidsSeriesSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  COUNT(*) AS value
FROM %s
WHERE seller_store_id = @sellerStoreID
  AND event_type = 'bid_placed'
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	soldSeriesSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  SUM(COALESCE(amount_cents, 0)) AS value
FROM %s
WHERE seller_store_id = @sellerStoreID
  AND event_type = 'auction_finalized'
  AND outcome = 'finalized'
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	outcomeTotalsSQL = `
SELECT
  COUNTIF(event_type = 'bid_placed' AND extended) AS extensions,
  COUNTIF(event_type = 'auction_finalized' AND outcome = 'finalized') AS finalized,
  COUNTIF(event_type = 'auction_finalized' AND outcome = 'ended_no_bids') AS ended_without_bids
FROM %s
WHERE seller_store_id = @sellerStoreID
  AND occurred_at BETWEEN @start AND @end
`

	topAuctionsSQL = `
SELECT auction_id AS label, COUNT(*) AS value
FROM %s
WHERE seller_store_id = @sellerStoreID
  AND event_type = 'bid_placed'
  AND occurred_at BETWEEN @start AND @end
GROUP BY auction_id
ORDER BY value DESC
LIMIT 5
`
)

type rowIterator interface {
	Next(dst any) error
}

type querier interface {
	Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (rowIterator, error)
}

// AuctionActivityService reads the seller auction dashboard out of BigQuery auction_events.
type AuctionActivityService interface {
	Query(ctx context.Context, req types.AuctionActivityRequest) (*types.AuctionActivityResponse, error)
}

type auctionActivityService struct {
	client   querier
	tableRef string
}

type clientQuerier struct {
	client *bigquery.Client
}

func (c clientQuerier) Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (rowIterator, error) {
	it, err := c.client.Query(ctx, sql, params)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// NewAuctionActivityService reports over table in the client's dataset.
func NewAuctionActivityService(client *bigquery.Client, table string) (AuctionActivityService, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	if table == "" {
		return nil, errors.New("auction events table is required")
	}
	return &auctionActivityService{
		client:   clientQuerier{client: client},
		tableRef: client.TableRef(table),
	}, nil
}

func (s *auctionActivityService) Query(ctx context.Context, req types.AuctionActivityRequest) (*types.AuctionActivityResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	params := baseParams(req)

	bids, err := s.querySeries(ctx, fmt.Sprintf(bidsSeriesSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	sold, err := s.querySeries(ctx, fmt.Sprintf(soldSeriesSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	totals, err := s.queryTotals(ctx, fmt.Sprintf(outcomeTotalsSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	top, err := s.queryTopLabels(ctx, fmt.Sprintf(topAuctionsSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}

	return &types.AuctionActivityResponse{
		BidsSeries:       bids,
		SoldSeriesCents:  sold,
		Extensions:       totals.Extensions,
		Finalized:        totals.Finalized,
		EndedWithoutBids: totals.EndedWithoutBids,
		SellThroughRate:  sellThrough(totals.Finalized, totals.EndedWithoutBids),
		TopAuctions:      top,
	}, nil
}

func validateRequest(req types.AuctionActivityRequest) error {
	if req.SellerStoreID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller store id required")
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if req.End.Before(req.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	return nil
}

func baseParams(req types.AuctionActivityRequest) []cloudbigquery.QueryParameter {
	return []cloudbigquery.QueryParameter{
		{Name: "sellerStoreID", Value: req.SellerStoreID},
		{Name: "start", Value: req.Start},
		{Name: "end", Value: req.End},
	}
}

func sellThrough(finalized, unsold int64) float64 {
	total := finalized + unsold
	if total == 0 {
		return 0
	}
	return float64(finalized) / float64(total)
}

func (s *auctionActivityService) querySeries(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.TimeSeriesPoint, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}

	points := []types.TimeSeriesPoint{}
	for {
		var row seriesRow
		if err := iter.Next(&row); err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("reading series row: %w", err)
		}
		points = append(points, types.TimeSeriesPoint{Date: row.Day, Value: row.Value})
	}
	return points, nil
}

type seriesRow struct {
	Day   string `bigquery:"day"`
	Value int64  `bigquery:"value"`
}

type labelRow struct {
	Label string `bigquery:"label"`
	Value int64  `bigquery:"value"`
}

type outcomeTotals struct {
	Extensions       int64 `bigquery:"extensions"`
	Finalized        int64 `bigquery:"finalized"`
	EndedWithoutBids int64 `bigquery:"ended_without_bids"`
}

func (s *auctionActivityService) queryTotals(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (outcomeTotals, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return outcomeTotals{}, fmt.Errorf("query outcome totals: %w", err)
	}
	var row outcomeTotals
	if err := iter.Next(&row); err != nil {
		if errors.Is(err, iterator.Done) {
			return outcomeTotals{}, nil
		}
		return outcomeTotals{}, fmt.Errorf("reading outcome totals row: %w", err)
	}
	return row, nil
}

func (s *auctionActivityService) queryTopLabels(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.LabelValue, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query top auctions: %w", err)
	}

	result := []types.LabelValue{}
	for {
		var row labelRow
		if err := iter.Next(&row); err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("reading top auction row: %w", err)
		}
		result = append(result, types.LabelValue{Label: row.Label, Value: row.Value})
	}
	return result, nil
}
