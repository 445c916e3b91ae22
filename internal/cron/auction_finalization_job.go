package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/auctionhouse-backend/internal/auctions"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

type auctionFinalizer interface {
	FinalizeEndedAuctions(ctx context.Context, now time.Time) (auctions.FinalizationReport, error)
}

type AuctionFinalizationJobParams struct {
	Logger    *logger.Logger
	Finalizer auctionFinalizer
}

// NewAuctionFinalizationJob builds the sweep that settles auctions past their deadline.
func NewAuctionFinalizationJob(params AuctionFinalizationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Finalizer == nil {
		return nil, fmt.Errorf("finalizer required")
	}
	return &auctionFinalizationJob{
		logg:      params.Logger,
		finalizer: params.Finalizer,
		now:       db.NowUTC,
	}, nil
}

type auctionFinalizationJob struct {
	logg      *logger.Logger
	finalizer auctionFinalizer
	now       func() time.Time
}

func (j *auctionFinalizationJob) Name() string { return "auction-finalization" }

// Run fails only when ended auctions could not be selected. Per-auction failures are
// logged and retried on the next cycle.
func (j *auctionFinalizationJob) Run(ctx context.Context) error {
	report, err := j.finalizer.FinalizeEndedAuctions(ctx, j.now())
	if err != nil {
		return fmt.Errorf("auction finalization: %w", err)
	}

	counts := map[auctions.FinalizationOutcome]int{}
	for _, result := range report.Results {
		counts[result.Outcome]++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"processed":     report.Processed,
		"finalized":     counts[auctions.OutcomeFinalized],
		"ended_no_bids": counts[auctions.OutcomeEndedNoBids],
		"skipped":       counts[auctions.OutcomeSkipped],
		"failed":        counts[auctions.OutcomeError],
	})
	if failures := report.Err(); failures != nil {
		j.logg.Error(logCtx, "some auctions failed to finalize", failures)
		return nil
	}
	if report.Processed > 0 {
		j.logg.Info(logCtx, "auction finalization complete")
	}
	return nil
}
