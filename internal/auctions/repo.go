package auctions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/internal/repo"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
)

// AuctionState is an auction row together with its current winning bid, if any.
type AuctionState struct {
	Listing models.Listing
	Winning *models.Bid
}

// EndParams describes the active to ended transition.
type EndParams struct {
	EndedAt         time.Time
	WinnerID        *uuid.UUID
	PaymentDeadline *time.Time
}

// Repository is the storage contract for bidding and settlement.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAuction(ctx context.Context, id uuid.UUID) (*AuctionState, error)
	FindAuctionForUpdate(ctx context.Context, id uuid.UUID) (*AuctionState, error)
	WinningBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error)
	DemoteWinningBids(ctx context.Context, auctionID uuid.UUID) error
	InsertBid(ctx context.Context, bid *models.Bid) error
	ApplyBid(ctx context.Context, auctionID uuid.UUID, version int, amount decimal.Decimal, endsAt, now time.Time) (bool, error)
	DistinctBidders(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error)
	ListBids(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.Bid, error)
	SelectEndedActive(ctx context.Context, now time.Time, after *EndedCursor, limit int) ([]models.Listing, error)
	MarkEnded(ctx context.Context, auctionID uuid.UUID, params EndParams) (bool, error)
	ExhaustInventory(ctx context.Context, auctionID uuid.UUID) error
	StoreOwner(ctx context.Context, storeID uuid.UUID) (uuid.UUID, error)
}

type repository struct {
	repo.Base
}

// NewRepository binds the auction repository to a gorm connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) FindAuction(ctx context.Context, id uuid.UUID) (*AuctionState, error) {
	return r.load(ctx, r.DB(ctx), id)
}

// FindAuctionForUpdate takes a row lock on the listing for the rest of the transaction.
func (r *repository) FindAuctionForUpdate(ctx context.Context, id uuid.UUID) (*AuctionState, error) {
	return r.load(ctx, r.ForUpdate(ctx), id)
}

func (r *repository) load(ctx context.Context, query *gorm.DB, id uuid.UUID) (*AuctionState, error) {
	var listing models.Listing
	if err := query.Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	winning, err := r.WinningBid(ctx, id)
	if err != nil {
		return nil, err
	}
	return &AuctionState{Listing: listing, Winning: winning}, nil
}

func (r *repository) WinningBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.DB(ctx).
		Where("auction_id = ? AND is_winning = ?", auctionID, true).
		First(&bid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *repository) DemoteWinningBids(ctx context.Context, auctionID uuid.UUID) error {
	return r.DB(ctx).
		Model(&models.Bid{}).
		Where("auction_id = ? AND is_winning = ?", auctionID, true).
		UpdateColumn("is_winning", false).Error
}

func (r *repository) InsertBid(ctx context.Context, bid *models.Bid) error {
	return r.DB(ctx).Create(bid).Error
}

// ApplyBid moves current_bid and the deadline only if nobody else bumped the
// version since the row was read. A false result means the caller lost the race.
func (r *repository) ApplyBid(ctx context.Context, auctionID uuid.UUID, version int, amount decimal.Decimal, endsAt, now time.Time) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND version = ? AND auction_status = ?", auctionID, version, enums.AuctionStatusActive).
		UpdateColumns(map[string]any{
			"current_bid":     amount,
			"auction_ends_at": endsAt,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) DistinctBidders(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).
		Model(&models.Bid{}).
		Where("auction_id = ?", auctionID).
		Distinct("bidder_id").
		Order("bidder_id").
		Pluck("bidder_id", &ids).Error
	return ids, err
}

func (r *repository) ListBids(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.DB(ctx).
		Where("auction_id = ?", auctionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&bids).Error
	return bids, err
}

// EndedCursor is the (auction_ends_at, id) of the last auction a sweep saw.
type EndedCursor struct {
	EndsAt time.Time
	ID     uuid.UUID
}

// SelectEndedActive pages ended auctions in (auction_ends_at, id) order,
// starting strictly after the cursor when one is given.
func (r *repository) SelectEndedActive(ctx context.Context, now time.Time, after *EndedCursor, limit int) ([]models.Listing, error) {
	var listings []models.Listing
	q := r.DB(ctx).
		Where("type = ? AND auction_status = ? AND auction_ends_at <= ?", enums.ListingTypeAuction, enums.AuctionStatusActive, now)
	if after != nil {
		q = q.Where("(auction_ends_at > ? OR (auction_ends_at = ? AND id > ?))", after.EndsAt, after.EndsAt, after.ID)
	}
	err := q.
		Order("auction_ends_at ASC, id ASC").
		Limit(limit).
		Find(&listings).Error
	return listings, err
}

// MarkEnded flips active to ended. A false result means another finalizer got there first.
func (r *repository) MarkEnded(ctx context.Context, auctionID uuid.UUID, params EndParams) (bool, error) {
	updates := map[string]any{
		"auction_status": enums.AuctionStatusEnded,
		"ended_at":       params.EndedAt,
		"version":        gorm.Expr("version + 1"),
	}
	if params.WinnerID != nil {
		updates["winner_id"] = *params.WinnerID
	}
	if params.PaymentDeadline != nil {
		updates["payment_deadline"] = *params.PaymentDeadline
	}
	res := r.DB(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND type = ? AND auction_status = ?", auctionID, enums.ListingTypeAuction, enums.AuctionStatusActive).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ExhaustInventory zeroes stock; auctions sell a single unit.
func (r *repository) ExhaustInventory(ctx context.Context, auctionID uuid.UUID) error {
	return r.DB(ctx).
		Model(&models.InventoryItem{}).
		Where("listing_id = ?", auctionID).
		UpdateColumns(map[string]any{"available_qty": 0, "reserved_qty": 0}).Error
}

func (r *repository) StoreOwner(ctx context.Context, storeID uuid.UUID) (uuid.UUID, error) {
	var store models.Store
	if err := r.DB(ctx).Select("id", "owner_id").Where("id = ?", storeID).First(&store).Error; err != nil {
		return uuid.Nil, err
	}
	return store.OwnerID, nil
}
