package auctions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/metrics"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/auctionhouse-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

const contentionBaseDelay = 5 * time.Millisecond

var errVersionConflict = errors.New("auction version changed")

// PlaceBidInput is a bid request as received from a client. Amount is the raw decimal string.
type PlaceBidInput struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    string
}

// PlaceBidResult describes an accepted bid.
type PlaceBidResult struct {
	BidID          uuid.UUID
	AcceptedAmount decimal.Decimal
	Extended       bool
	AuctionEndsAt  time.Time
}

// AuctionView is the public snapshot of an auction.
type AuctionView struct {
	ID              uuid.UUID           `json:"id"`
	StoreID         uuid.UUID           `json:"store_id"`
	Title           string              `json:"title"`
	Status          enums.AuctionStatus `json:"status"`
	StartingPrice   decimal.Decimal     `json:"starting_price"`
	CurrentBid      decimal.Decimal     `json:"current_bid"`
	BidIncrement    decimal.Decimal     `json:"bid_increment"`
	BuyNowPrice     *decimal.Decimal    `json:"buy_now_price,omitempty"`
	MinimumNextBid  decimal.Decimal     `json:"minimum_next_bid"`
	EndsAt          *time.Time          `json:"ends_at"`
	LeadingBidderID *uuid.UUID          `json:"leading_bidder_id,omitempty"`
	WinnerID        *uuid.UUID          `json:"winner_id,omitempty"`
	EndedAt         *time.Time          `json:"ended_at,omitempty"`
	PaymentDeadline *time.Time          `json:"payment_deadline,omitempty"`
}

// BidService accepts bids and serves auction reads.
type BidService struct {
	tx          txRunner
	repo        Repository
	outbox      outboxEmitter
	metrics     *metrics.AuctionMetrics
	logg        *logger.Logger
	window      time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewBidService wires the bid acceptance dependencies.
func NewBidService(tx txRunner, repo Repository, emitter outboxEmitter, m *metrics.AuctionMetrics, logg *logger.Logger, cfg config.AuctionsConfig) (*BidService, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("auction repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.AntiSnipeWindow <= 0 {
		return nil, fmt.Errorf("anti-snipe window must be positive")
	}
	attempts := cfg.BidMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &BidService{
		tx:          tx,
		repo:        repo,
		outbox:      emitter,
		metrics:     m,
		logg:        logg,
		window:      cfg.AntiSnipeWindow,
		maxAttempts: attempts,
		now:         db.NowUTC,
	}, nil
}

// PlaceBid validates and commits one bid. Every failure is a *BidError.
func (s *BidService) PlaceBid(ctx context.Context, in PlaceBidInput) (PlaceBidResult, error) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"auction_id": in.AuctionID.String(),
		"bidder_id":  in.BidderID.String(),
	})
	if in.BidderID == uuid.Nil {
		return PlaceBidResult{}, s.reject(logCtx, newBidError(BidErrorInvalidBidder))
	}

	var (
		result  PlaceBidResult
		attempt int
	)
	err := retry.Do(ctx, s.contentionBackoff(), func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			s.metrics.IncBidRetry()
			s.logg.Warn(s.logg.WithField(logCtx, "attempt", attempt-1), "bid contention, retrying")
		}
		var err error
		result, err = s.attempt(ctx, in)
		if _, ok := AsBidError(err); !ok && err != nil && isContention(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if bidErr, ok := AsBidError(err); ok {
		return PlaceBidResult{}, s.reject(logCtx, bidErr)
	}
	switch {
	case err == nil:
		s.metrics.IncBidAccepted(result.Extended)
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"bid_id":   result.BidID.String(),
			"amount":   money(result.AcceptedAmount),
			"extended": result.Extended,
			"attempt":  attempt,
		}), "bid accepted")
		return result, nil
	case isContention(err), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return PlaceBidResult{}, s.reject(logCtx, &BidError{Kind: BidErrorTransient, Err: err})
	default:
		return PlaceBidResult{}, s.reject(logCtx, &BidError{Kind: BidErrorUnknown, Err: err})
	}
}

// contentionBackoff spaces optimistic retries a few milliseconds apart with
// jitter so racing bidders do not collide again in lockstep.
func (s *BidService) contentionBackoff() retry.Backoff {
	b := retry.NewExponential(contentionBaseDelay)
	b = retry.WithJitterPercent(25, b)
	return retry.WithMaxRetries(uint64(s.maxAttempts-1), b)
}

func isContention(err error) bool {
	return errors.Is(err, errVersionConflict) || db.IsRetryable(err) || db.IsUniqueViolation(err, "")
}

func (s *BidService) reject(ctx context.Context, bidErr *BidError) error {
	s.metrics.IncBidRejected(string(bidErr.Kind.Reason()))
	switch bidErr.Kind {
	case BidErrorUnknown, BidErrorTransient:
		s.logg.Error(ctx, "bid failed", bidErr)
	default:
		s.logg.Info(s.logg.WithField(ctx, "reason", string(bidErr.Kind.Reason())), "bid rejected")
	}
	return bidErr
}

func (s *BidService) attempt(ctx context.Context, in PlaceBidInput) (PlaceBidResult, error) {
	var result PlaceBidResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.now()
		repo := s.repo.WithTx(tx)

		state, err := repo.FindAuctionForUpdate(ctx, in.AuctionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newBidError(BidErrorNotFound)
		}
		if err != nil {
			return err
		}
		listing := &state.Listing

		if listing.Type != enums.ListingTypeAuction {
			return newBidError(BidErrorInvalidListingType)
		}
		if !acceptingBids(listing, now) {
			return newBidError(BidErrorAuctionClosed)
		}
		amount, ok := ParseAmount(in.Amount)
		if !ok {
			return newBidError(BidErrorInvalidAmount)
		}
		minimum := MinimumNextBid(listing)
		if amount.LessThan(minimum) {
			return &BidError{Kind: BidErrorTooLow, MinimumBid: minimum}
		}
		previous := state.Winning
		if previous != nil && previous.BidderID == in.BidderID {
			return newBidError(BidErrorAlreadyHighestBidder)
		}

		if err := repo.DemoteWinningBids(ctx, listing.ID); err != nil {
			return err
		}
		bid := models.Bid{
			AuctionID: listing.ID,
			BidderID:  in.BidderID,
			Amount:    amount,
			IsWinning: true,
			CreatedAt: now,
		}
		if err := repo.InsertBid(ctx, &bid); err != nil {
			return err
		}

		previousEndsAt := *listing.AuctionEndsAt
		endsAt, extended := extendDeadline(previousEndsAt, now, s.window)
		applied, err := repo.ApplyBid(ctx, listing.ID, listing.Version, amount, endsAt, now)
		if err != nil {
			return err
		}
		if !applied {
			return errVersionConflict
		}

		if err := s.emitBidEvents(ctx, tx, repo, listing, &bid, previous, previousEndsAt, endsAt, extended, now); err != nil {
			return err
		}

		result = PlaceBidResult{
			BidID:          bid.ID,
			AcceptedAmount: amount,
			Extended:       extended,
			AuctionEndsAt:  endsAt,
		}
		return nil
	})
	return result, err
}

func acceptingBids(listing *models.Listing, now time.Time) bool {
	if listing.AuctionStatus == nil || *listing.AuctionStatus != enums.AuctionStatusActive {
		return false
	}
	return listing.AuctionEndsAt != nil && now.Before(*listing.AuctionEndsAt)
}

// extendDeadline resets a deadline closer than window to now+window. It never adds to it.
func extendDeadline(endsAt, now time.Time, window time.Duration) (time.Time, bool) {
	if endsAt.Sub(now) < window {
		return now.Add(window), true
	}
	return endsAt, false
}

func (s *BidService) emitBidEvents(
	ctx context.Context,
	tx *gorm.DB,
	repo Repository,
	listing *models.Listing,
	bid *models.Bid,
	previous *models.Bid,
	previousEndsAt, endsAt time.Time,
	extended bool,
	now time.Time,
) error {
	actor := &outbox.ActorRef{UserID: &bid.BidderID, Role: outbox.ActorRoleBidder}

	placed := payloads.BidPlacedEvent{
		AuctionID:     listing.ID,
		BidID:         bid.ID,
		BidderID:      bid.BidderID,
		SellerStoreID: listing.StoreID,
		Amount:        bid.Amount,
		Extended:      extended,
		EndsAt:        endsAt,
		PlacedAt:      now,
	}
	if previous != nil {
		placed.PreviousBidderID = &previous.BidderID
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventBidPlaced,
		AggregateType: enums.AggregateAuction,
		AggregateID:   listing.ID,
		Actor:         actor,
		Data:          placed,
		OccurredAt:    now,
	}); err != nil {
		return fmt.Errorf("emit bid placed: %w", err)
	}

	requests := []payloads.NotificationRequestedEvent{}
	if previous != nil {
		next := RoundAmount(bid.Amount.Add(listing.BidIncrement.Decimal))
		requests = append(requests, outbidNotification(listing, previous.BidderID, bid.Amount, next))
	}
	requests = append(requests, bidPlacedNotification(listing, bid.BidderID, bid.ID, bid.Amount, endsAt))

	if extended {
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAuctionExtended,
			AggregateType: enums.AggregateAuction,
			AggregateID:   listing.ID,
			Actor:         actor,
			Data: payloads.AuctionExtendedEvent{
				AuctionID:      listing.ID,
				TriggerBidID:   bid.ID,
				PreviousEndsAt: previousEndsAt,
				NewEndsAt:      endsAt,
			},
			OccurredAt: now,
		}); err != nil {
			return fmt.Errorf("emit auction extended: %w", err)
		}
		bidders, err := repo.DistinctBidders(ctx, listing.ID)
		if err != nil {
			return fmt.Errorf("load bidders: %w", err)
		}
		for _, bidderID := range bidders {
			requests = append(requests, extendedNotification(listing, bidderID, endsAt))
		}
	}
	return emitNotifications(ctx, tx, s.outbox, actor, now, requests...)
}

// GetAuction returns the auction snapshot with the next acceptable bid.
func (s *BidService) GetAuction(ctx context.Context, id uuid.UUID) (*AuctionView, error) {
	state, err := s.repo.FindAuction(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load auction")
	}
	if state.Listing.Type != enums.ListingTypeAuction {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
	}
	return newAuctionView(state), nil
}

func newAuctionView(state *AuctionState) *AuctionView {
	l := state.Listing
	view := &AuctionView{
		ID:              l.ID,
		StoreID:         l.StoreID,
		Title:           l.Title,
		StartingPrice:   l.StartingPrice.Decimal,
		CurrentBid:      l.StartingPrice.Decimal,
		BidIncrement:    l.BidIncrement.Decimal,
		MinimumNextBid:  MinimumNextBid(&l),
		EndsAt:          l.AuctionEndsAt,
		WinnerID:        l.WinnerID,
		EndedAt:         l.EndedAt,
		PaymentDeadline: l.PaymentDeadline,
	}
	if l.AuctionStatus != nil {
		view.Status = *l.AuctionStatus
	}
	if l.CurrentBid.Valid {
		view.CurrentBid = l.CurrentBid.Decimal
	}
	if l.BuyNowPrice.Valid {
		price := l.BuyNowPrice.Decimal
		view.BuyNowPrice = &price
	}
	if state.Winning != nil {
		view.LeadingBidderID = &state.Winning.BidderID
	}
	return view
}

// ListBids returns the bid history newest first.
func (s *BidService) ListBids(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.Bid, error) {
	if _, err := s.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	bids, err := s.repo.ListBids(ctx, auctionID, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bids")
	}
	return bids, nil
}
