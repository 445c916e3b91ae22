package db_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/dbtest"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

type ledgerEntry struct {
	ID   uint
	Memo string
}

func countEntries(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&ledgerEntry{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	client := dbtest.Client(t, &ledgerEntry{})
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&ledgerEntry{Memo: "kept"}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countEntries(t, client.DB()))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	client := dbtest.Client(t, &ledgerEntry{})
	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&ledgerEntry{Memo: "discarded"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, countEntries(t, client.DB()))
}

func TestWithTxRollsBackAndRepanics(t *testing.T) {
	client := dbtest.Client(t, &ledgerEntry{})
	assert.PanicsWithValue(t, "kaboom", func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&ledgerEntry{Memo: "discarded"}).Error)
			panic("kaboom")
		})
	})
	assert.Zero(t, countEntries(t, client.DB()))
}

func TestPing(t *testing.T) {
	client := dbtest.Client(t, &ledgerEntry{})
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewRejectsMissingDSN(t *testing.T) {
	_, err := db.New(context.Background(), config.DBConfig{}, nil)
	assert.Error(t, err)
}

func TestNowUTC(t *testing.T) {
	assert.Equal(t, time.UTC, db.NowUTC().Location())
}

func bufferedLogger() (*logger.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Format: logger.FormatJSON, Output: &buf}), &buf
}

func lines(buf *bytes.Buffer) []map[string]any {
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		if err := json.Unmarshal([]byte(line), &entry); err == nil {
			out = append(out, entry)
		}
	}
	return out
}

func TestGormLoggerReportsFailuresNotMisses(t *testing.T) {
	logg, buf := bufferedLogger()
	gl := db.NewGormLogger(logg)
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 0 }

	gl.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	gl.Trace(ctx, time.Now(), sql, nil)
	assert.Empty(t, lines(buf), "misses and fast queries stay quiet at the default level")

	gl.Trace(ctx, time.Now(), sql, errors.New("relation does not exist"))
	gl.Trace(ctx, time.Now().Add(-time.Second), sql, nil)

	entries := lines(buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "db.query_failed", entries[0]["message"])
	assert.Equal(t, "SELECT 1", entries[0]["sql"])
	assert.Equal(t, "db.slow_query", entries[1]["message"])
}

func TestGormLoggerSilentMode(t *testing.T) {
	logg, buf := bufferedLogger()
	gl := db.NewGormLogger(logg).LogMode(gormlogger.Silent)
	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("boom"))
	assert.Empty(t, buf.String())

	assert.Equal(t, gormlogger.Discard, db.NewGormLogger(nil))
}
