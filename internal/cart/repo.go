package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes persistence operations for carts.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindActiveByBuyer loads the buyer's active cart with its items.
func (r *Repository) FindActiveByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("buyer_user_id = ? AND status = ?", buyerID, enums.CartStatusActive).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// EnsureActiveCart returns the buyer's active cart, creating one if none exists.
// The partial unique index on (buyer_user_id) WHERE status = 'active' absorbs a
// concurrent create.
func (r *Repository) EnsureActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error) {
	if buyerID == uuid.Nil {
		return nil, errors.New("buyer id required")
	}
	record := models.CartRecord{
		BuyerUserID: buyerID,
		Status:      enums.CartStatusActive,
		Currency:    "USD",
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "buyer_user_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Eq{Column: clause.Column{Name: "status"}, Value: string(enums.CartStatusActive)}}},
			DoNothing:   true,
		}).
		Omit("Items").
		Create(&record).Error
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return r.FindActiveByBuyer(ctx, buyerID)
}

// UpsertAuctionItem inserts the line unless (cart_id, listing_id) already exists.
// The stored row is returned either way; created reports whether this call inserted it.
func (r *Repository) UpsertAuctionItem(ctx context.Context, item models.CartItem) (*models.CartItem, bool, error) {
	item.Source = enums.CartItemSourceAuction
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "listing_id"}},
			DoNothing: true,
		}).
		Create(&item)
	if res.Error != nil {
		return nil, false, fmt.Errorf("insert cart item: %w", res.Error)
	}

	var stored models.CartItem
	if err := r.db.WithContext(ctx).
		Where("cart_id = ? AND listing_id = ?", item.CartID, item.ListingID).
		First(&stored).Error; err != nil {
		return nil, false, err
	}
	return &stored, res.RowsAffected > 0, nil
}
