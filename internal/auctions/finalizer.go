package auctions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/internal/cart"
	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/metrics"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox/payloads"
)

const defaultFinalizeBatchSize = 100

// FinalizationOutcome is the per-auction result of a sweep.
type FinalizationOutcome string

const (
	OutcomeFinalized   FinalizationOutcome = "finalized"
	OutcomeEndedNoBids FinalizationOutcome = "ended_no_bids"
	OutcomeSkipped     FinalizationOutcome = "skipped"
	OutcomeError       FinalizationOutcome = "error"
)

type FinalizationResult struct {
	AuctionID uuid.UUID           `json:"auction_id"`
	Outcome   FinalizationOutcome `json:"outcome"`
	WinnerID  *uuid.UUID          `json:"winner_id,omitempty"`
	Amount    *decimal.Decimal    `json:"amount,omitempty"`
	Error     string              `json:"error,omitempty"`

	cause error
}

type FinalizationReport struct {
	Processed int                  `json:"processed"`
	Results   []FinalizationResult `json:"results"`
}

// Err combines the per-auction failures, or returns nil when every auction settled.
func (r FinalizationReport) Err() error {
	var errs []error
	for _, result := range r.Results {
		if result.cause != nil {
			errs = append(errs, fmt.Errorf("auction %s: %w", result.AuctionID, result.cause))
		}
	}
	return multierr.Combine(errs...)
}

type winSeeder interface {
	SeedAuctionWin(ctx context.Context, tx *gorm.DB, win cart.AuctionWin) (*models.CartItem, error)
}

// Finalizer moves ended auctions to their terminal state. It holds no state
// between calls and is safe to run from several workers at once.
type Finalizer struct {
	tx            txRunner
	repo          Repository
	seeder        winSeeder
	outbox        outboxEmitter
	metrics       *metrics.AuctionMetrics
	logg          *logger.Logger
	paymentWindow time.Duration
	batchSize     int
}

func NewFinalizer(tx txRunner, repo Repository, seeder winSeeder, emitter outboxEmitter, m *metrics.AuctionMetrics, logg *logger.Logger, cfg config.AuctionsConfig) (*Finalizer, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("auction repository required")
	}
	if seeder == nil {
		return nil, fmt.Errorf("cart seeder required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.PaymentWindow <= 0 {
		return nil, fmt.Errorf("payment window must be positive")
	}
	batch := cfg.FinalizeBatchSize
	if batch <= 0 {
		batch = defaultFinalizeBatchSize
	}
	return &Finalizer{
		tx:            tx,
		repo:          repo,
		seeder:        seeder,
		outbox:        emitter,
		metrics:       m,
		logg:          logg,
		paymentWindow: cfg.PaymentWindow,
		batchSize:     batch,
	}, nil
}

// FinalizeEndedAuctions settles every active auction whose deadline is at or before now.
// Candidates are read in pages of batchSize; the cursor moves past failed
// auctions so they cannot starve later ones. Only a failed selection returns
// an error; per-auction failures land in the report.
func (f *Finalizer) FinalizeEndedAuctions(ctx context.Context, now time.Time) (FinalizationReport, error) {
	now = now.UTC()
	report := FinalizationReport{Results: []FinalizationResult{}}
	var cursor *EndedCursor
	for {
		listings, err := f.repo.SelectEndedActive(ctx, now, cursor, f.batchSize)
		if err != nil {
			f.logg.Error(ctx, "select ended auctions", err)
			report.Processed = len(report.Results)
			return report, fmt.Errorf("%w: %w", ErrSelectionFailed, err)
		}
		for _, listing := range listings {
			result := f.finalize(ctx, listing.ID, now)
			f.metrics.IncFinalized(string(result.Outcome))
			report.Results = append(report.Results, result)
		}
		if len(listings) < f.batchSize {
			break
		}
		last := listings[len(listings)-1]
		cursor = &EndedCursor{EndsAt: *last.AuctionEndsAt, ID: last.ID}
	}
	report.Processed = len(report.Results)
	return report, nil
}

func (f *Finalizer) finalize(ctx context.Context, auctionID uuid.UUID, now time.Time) FinalizationResult {
	logCtx := f.logg.WithAuctionID(ctx, auctionID.String())
	result := FinalizationResult{AuctionID: auctionID}

	err := f.tx.WithTx(ctx, func(tx *gorm.DB) error {
		result = FinalizationResult{AuctionID: auctionID}
		return f.finalizeTx(ctx, tx, auctionID, now, &result)
	})
	if err != nil {
		f.logg.Error(logCtx, "auction finalization failed", err)
		return FinalizationResult{
			AuctionID: auctionID,
			Outcome:   OutcomeError,
			Error:     err.Error(),
			cause:     err,
		}
	}
	f.logg.Info(f.logg.WithField(logCtx, "outcome", string(result.Outcome)), "auction finalization")
	return result
}

func (f *Finalizer) finalizeTx(ctx context.Context, tx *gorm.DB, auctionID uuid.UUID, now time.Time, result *FinalizationResult) error {
	repo := f.repo.WithTx(tx)

	state, err := repo.FindAuctionForUpdate(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("lock auction: %w", err)
	}
	listing := &state.Listing
	if !readyToFinalize(listing, now) {
		result.Outcome = OutcomeSkipped
		return nil
	}

	winning := state.Winning
	if winning == nil {
		return f.endWithoutBids(ctx, tx, repo, listing, now, result)
	}

	deadline := now.Add(f.paymentWindow)
	ended, err := repo.MarkEnded(ctx, listing.ID, EndParams{
		EndedAt:         now,
		WinnerID:        &winning.BidderID,
		PaymentDeadline: &deadline,
	})
	if err != nil {
		return fmt.Errorf("mark ended: %w", err)
	}
	if !ended {
		result.Outcome = OutcomeSkipped
		return nil
	}
	if err := repo.ExhaustInventory(ctx, listing.ID); err != nil {
		return fmt.Errorf("exhaust inventory: %w", err)
	}
	if _, err := f.seeder.SeedAuctionWin(ctx, tx, cart.AuctionWin{
		BuyerID:       winning.BidderID,
		ListingID:     listing.ID,
		VendorStoreID: listing.StoreID,
		Amount:        winning.Amount,
	}); err != nil {
		return fmt.Errorf("seed cart: %w", err)
	}

	bidders, err := repo.DistinctBidders(ctx, listing.ID)
	if err != nil {
		return fmt.Errorf("load bidders: %w", err)
	}
	sellerID, err := repo.StoreOwner(ctx, listing.StoreID)
	if err != nil {
		return fmt.Errorf("load seller: %w", err)
	}

	amount := winning.Amount
	if err := f.emitFinalized(ctx, tx, payloads.AuctionFinalizedEvent{
		AuctionID:       listing.ID,
		SellerStoreID:   listing.StoreID,
		Outcome:         string(OutcomeFinalized),
		WinnerID:        &winning.BidderID,
		WinningBidID:    &winning.ID,
		FinalAmount:     &amount,
		BidderCount:     len(bidders),
		EndedAt:         now,
		PaymentDeadline: &deadline,
	}, now); err != nil {
		return err
	}

	requests := []payloads.NotificationRequestedEvent{
		wonNotification(listing, winning.BidderID, amount, deadline),
		soldNotification(listing, sellerID, winning.BidderID, amount),
	}
	for _, bidderID := range bidders {
		if bidderID == winning.BidderID {
			continue
		}
		requests = append(requests, lostNotification(listing, bidderID, amount))
	}
	if err := emitNotifications(ctx, tx, f.outbox, systemActor(), now, requests...); err != nil {
		return err
	}

	result.Outcome = OutcomeFinalized
	result.WinnerID = &winning.BidderID
	result.Amount = &amount
	return nil
}

func (f *Finalizer) endWithoutBids(ctx context.Context, tx *gorm.DB, repo Repository, listing *models.Listing, now time.Time, result *FinalizationResult) error {
	ended, err := repo.MarkEnded(ctx, listing.ID, EndParams{EndedAt: now})
	if err != nil {
		return fmt.Errorf("mark ended: %w", err)
	}
	if !ended {
		result.Outcome = OutcomeSkipped
		return nil
	}
	sellerID, err := repo.StoreOwner(ctx, listing.StoreID)
	if err != nil {
		return fmt.Errorf("load seller: %w", err)
	}
	if err := f.emitFinalized(ctx, tx, payloads.AuctionFinalizedEvent{
		AuctionID:     listing.ID,
		SellerStoreID: listing.StoreID,
		Outcome:       string(OutcomeEndedNoBids),
		EndedAt:       now,
	}, now); err != nil {
		return err
	}
	if err := emitNotifications(ctx, tx, f.outbox, systemActor(), now, noBidsNotification(listing, sellerID)); err != nil {
		return err
	}
	result.Outcome = OutcomeEndedNoBids
	return nil
}

func (f *Finalizer) emitFinalized(ctx context.Context, tx *gorm.DB, event payloads.AuctionFinalizedEvent, now time.Time) error {
	if err := f.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventAuctionFinalized,
		AggregateType: enums.AggregateAuction,
		AggregateID:   event.AuctionID,
		Actor:         systemActor(),
		Data:          event,
		OccurredAt:    now,
	}); err != nil {
		return fmt.Errorf("emit auction finalized: %w", err)
	}
	return nil
}

// readyToFinalize re-checks the selection predicate under the row lock.
func readyToFinalize(listing *models.Listing, now time.Time) bool {
	if listing.Type != enums.ListingTypeAuction {
		return false
	}
	if listing.AuctionStatus == nil || *listing.AuctionStatus != enums.AuctionStatusActive {
		return false
	}
	return listing.AuctionEndsAt != nil && !listing.AuctionEndsAt.After(now)
}

func systemActor() *outbox.ActorRef {
	return &outbox.ActorRef{Role: outbox.ActorRoleSystem}
}

// IsSelectionFailure reports whether err came from loading the batch rather than one auction.
func IsSelectionFailure(err error) bool {
	return errors.Is(err, ErrSelectionFailed)
}
