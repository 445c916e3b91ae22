package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/dbtest"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
)

func TestServiceGetActiveCartNotFound(t *testing.T) {
	t.Parallel()

	conn := dbtest.Open(t, &models.CartRecord{}, &models.CartItem{})
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	_, err = svc.GetActiveCart(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestEnsureActiveCartReusesExisting(t *testing.T) {
	t.Parallel()

	conn := dbtest.Open(t, &models.CartRecord{}, &models.CartItem{})
	repo := NewRepository(conn)
	buyer := uuid.New()

	first, err := repo.EnsureActiveCart(context.Background(), buyer)
	require.NoError(t, err)
	second, err := repo.EnsureActiveCart(context.Background(), buyer)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, conn.Model(&models.CartRecord{}).Where("buyer_user_id = ?", buyer).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnsureActiveCartIgnoresConvertedCarts(t *testing.T) {
	t.Parallel()

	conn := dbtest.Open(t, &models.CartRecord{}, &models.CartItem{})
	repo := NewRepository(conn)
	buyer := uuid.New()
	converted := models.CartRecord{BuyerUserID: buyer, Status: enums.CartStatusConverted}
	require.NoError(t, conn.Create(&converted).Error)

	active, err := repo.EnsureActiveCart(context.Background(), buyer)
	require.NoError(t, err)
	assert.NotEqual(t, converted.ID, active.ID)
	assert.Equal(t, enums.CartStatusActive, active.Status)
}

func TestSeedAuctionWinIsIdempotent(t *testing.T) {
	t.Parallel()

	conn := dbtest.Open(t, &models.CartRecord{}, &models.CartItem{})
	seeder := NewSeeder(NewRepository(conn))
	win := AuctionWin{
		BuyerID:       uuid.New(),
		ListingID:     uuid.New(),
		VendorStoreID: uuid.New(),
		Amount:        decimal.RequireFromString("5500.00"),
	}

	first, err := seeder.SeedAuctionWin(context.Background(), conn, win)
	require.NoError(t, err)
	second, err := seeder.SeedAuctionWin(context.Background(), conn, win)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	record, err := svc.GetActiveCart(context.Background(), win.BuyerID)
	require.NoError(t, err)
	require.Len(t, record.Items, 1)
	item := record.Items[0]
	assert.True(t, item.UnitPrice.Equal(win.Amount))
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, enums.CartItemSourceAuction, item.Source)
	require.True(t, item.BidAmount.Valid)
	assert.True(t, item.BidAmount.Decimal.Equal(win.Amount))
}
