// Package cart holds the buyer carts that auction wins are settled into.
package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
)

// Store is the persistence the service and the seeder share. WithTx rebinds
// it to the caller's transaction.
type Store interface {
	WithTx(tx *gorm.DB) Store
	FindActiveByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error)
	EnsureActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error)
	UpsertAuctionItem(ctx context.Context, item models.CartItem) (*models.CartItem, bool, error)
}

// Service exposes cart reads to the API.
type Service interface {
	GetActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error)
}

type service struct {
	store Store
}

func NewService(store Store) (Service, error) {
	if store == nil {
		return nil, errors.New("cart store required")
	}
	return &service{store: store}, nil
}

func (s *service) GetActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	record, err := s.store.FindActiveByBuyer(ctx, buyerID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return record, nil
}
