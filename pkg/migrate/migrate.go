// Package migrate applies the goose SQL migrations under DefaultDir.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

const DefaultDir = "pkg/migrate/migrations"

var dialectOnce = sync.OnceValue(func() error {
	return goose.SetDialect("postgres")
})

// Migrator runs goose against one database and directory.
type Migrator struct {
	db  *sql.DB
	dir string
}

func New(conn *sql.DB, dir string) (*Migrator, error) {
	if conn == nil {
		return nil, errors.New("db is required")
	}
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	if err := dialectOnce(); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	return &Migrator{db: conn, dir: dir}, nil
}

// Apply runs a plain goose command: up, down, redo or status.
func (m *Migrator) Apply(ctx context.Context, command string) error {
	switch command {
	case "up", "down", "redo", "status":
	default:
		return fmt.Errorf("unsupported goose command %q", command)
	}
	if err := goose.RunContext(ctx, command, m.db, m.dir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// To moves the schema up or down until it sits at version.
func (m *Migrator) To(ctx context.Context, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || len(version) != len(versionLayout) {
		return fmt.Errorf("invalid version %q, want %s", version, versionLayout)
	}
	current, err := goose.GetDBVersionContext(ctx, m.db)
	if err != nil {
		return fmt.Errorf("read db version: %w", err)
	}

	switch {
	case target > current:
		err = goose.UpToContext(ctx, m.db, m.dir, target)
	case target < current:
		err = goose.DownToContext(ctx, m.db, m.dir, target)
	}
	if err != nil {
		return fmt.Errorf("goose %d -> %d: %w", current, target, err)
	}
	return nil
}

// DevAutoMigrate applies pending migrations at start-up when running in dev
// with the auto-migrate flag on. Anywhere else it does nothing.
func DevAutoMigrate(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	conn, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("unwrap sql.DB: %w", err)
	}
	m, err := New(conn, DefaultDir)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "dir", DefaultDir)
	logg.Info(ctx, "migrate.auto.start")
	if err := m.Apply(ctx, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "migrate.auto.done")
	return nil
}
