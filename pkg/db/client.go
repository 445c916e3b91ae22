// Package db owns the Postgres connection pool and transaction helper shared
// by every service.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

type Client struct {
	conn *gorm.DB
}

// New opens a pgx pool behind database/sql and hands it to gorm. Queries use
// the simple protocol so statements survive a pgbouncer in transaction mode.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database DSN: %w", err)
	}
	connCfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	sqlDB := stdlib.OpenDB(*connCfg)
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 NewGormLogger(logg),
		SkipDefaultTransaction: true,
		NowFunc:                NowUTC,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("opening db connection: %w", err)
	}
	c := &Client{conn: conn}
	if err := c.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database %s: %w", connCfg.Host, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"db_host": connCfg.Host, "db_name": connCfg.Database}), "db.connected")
	}
	return c, nil
}

// NowUTC is the clock for gorm timestamps and for services that stamp rows.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// FromConn wraps an already opened gorm handle such as a sqlite test database.
func FromConn(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in one transaction. An error or panic from fn rolls it back;
// the panic is re-raised.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
