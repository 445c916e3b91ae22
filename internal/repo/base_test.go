package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/dbtest"
)

type lot struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestBindSwitchesToTransaction(t *testing.T) {
	conn := dbtest.Open(t, &lot{})
	base := NewBase(conn)

	require.Equal(t, base, base.Bind(nil))

	err := conn.Transaction(func(tx *gorm.DB) error {
		bound := base.Bind(tx)
		require.NoError(t, bound.DB(context.Background()).Create(&lot{Name: "pocket watch"}).Error)
		return errRollback
	})
	require.ErrorIs(t, err, errRollback)

	var count int64
	require.NoError(t, base.DB(context.Background()).Model(&lot{}).Count(&count).Error)
	require.Zero(t, count, "insert through the bound tx must roll back with it")
}

func TestDBCarriesContext(t *testing.T) {
	base := NewBase(dbtest.Open(t, &lot{}))

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "auction")
	require.Equal(t, ctx, base.DB(ctx).Statement.Context)
}

func TestForUpdateReadsRow(t *testing.T) {
	base := NewBase(dbtest.Open(t, &lot{}))
	ctx := context.Background()
	require.NoError(t, base.DB(ctx).Create(&lot{Name: "oak desk"}).Error)

	var got lot
	require.NoError(t, base.ForUpdate(ctx).Where("name = ?", "oak desk").First(&got).Error)
	require.Equal(t, "oak desk", got.Name)
}

type rollbackErr struct{}

func (rollbackErr) Error() string { return "rollback" }

var errRollback = rollbackErr{}
