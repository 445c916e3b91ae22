// Package dbtest opens throwaway sqlite databases for repository tests.
package dbtest

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
)

// Open returns an isolated in-memory database migrated with the given models.
// Passing no models migrates the full auction schema.
func Open(t testing.TB, tables ...any) *gorm.DB {
	t.Helper()
	name := "file:ah_" + strings.ReplaceAll(uuid.NewString(), "-", "") + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger:  db.NewGormLogger(nil),
		NowFunc: db.NowUTC,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// a single connection serializes writers the way row locks do in postgres
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(tables) == 0 {
		tables = AllModels()
	}
	if err := conn.AutoMigrate(tables...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// Client wraps Open in a db.Client so services can use WithTx.
func Client(t testing.TB, tables ...any) *db.Client {
	t.Helper()
	return db.FromConn(Open(t, tables...))
}

// AllModels lists every persisted model.
func AllModels() []any {
	return []any{
		&models.User{},
		&models.Store{},
		&models.Listing{},
		&models.InventoryItem{},
		&models.Bid{},
		&models.CartRecord{},
		&models.CartItem{},
		&models.Notification{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	}
}
