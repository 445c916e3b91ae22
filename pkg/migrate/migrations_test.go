package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/auctionhouse-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func requireStatements(t *testing.T, content string, checks ...string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestBidsMigrationKeepsOneWinner(t *testing.T) {
	requireStatements(t, readMigration(t, "create_bids"),
		"CREATE TABLE IF NOT EXISTS bids",
		"CREATE UNIQUE INDEX IF NOT EXISTS bids_one_winner_idx ON bids (auction_id) WHERE is_winning = true",
		"CHECK (amount > 0)",
		"DROP TABLE IF EXISTS bids",
	)
}

func TestListingsMigrationCarriesAuctionColumns(t *testing.T) {
	requireStatements(t, readMigration(t, "create_listings_and_inventory_items"),
		"version integer NOT NULL DEFAULT 0",
		"auction_ends_at timestamptz",
		"WHERE type = 'auction' AND auction_status = 'active'",
		"CHECK (available_qty >= 0)",
		"DROP TABLE IF EXISTS listings",
	)
}

func TestCartMigrationEnforcesOneItemPerListing(t *testing.T) {
	requireStatements(t, readMigration(t, "create_cart_records_and_items"),
		"CONSTRAINT cart_items_cart_listing_idx UNIQUE (cart_id, listing_id)",
		"cart_records_active_buyer_idx",
		"WHERE status = 'active'",
	)
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "create_things.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to be rejected")
	}
}

func TestValidateDirRejectsDuplicateVersionsAndMissingSections(t *testing.T) {
	cases := map[string]map[string]string{
		"duplicate version": {
			"20260101000000_a.sql": "-- +goose Up\n-- +goose Down\n",
			"20260101000000_b.sql": "-- +goose Up\n-- +goose Down\n",
		},
		"missing down": {
			"20260101000000_a.sql": "-- +goose Up\nSELECT 1;\n",
		},
		"down before up": {
			"20260101000000_a.sql": "-- +goose Down\n-- +goose Up\n",
		},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			for file, body := range files {
				if err := os.WriteFile(filepath.Join(dir, file), []byte(body), 0o644); err != nil {
					t.Fatalf("write: %v", err)
				}
			}
			if err := migrate.ValidateDir(dir); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateFileWritesValidTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 5, 2, 10, 30, 0, 0, time.UTC)

	path, err := migrate.CreateFile(dir, "  Add Bid-Index ", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if want := filepath.Join(dir, "20260502103000_add_bid_index.sql"); path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
	if _, err := migrate.CreateFile(dir, "add bid index", now); err == nil {
		t.Fatal("expected existing migration to be left alone")
	}
	if _, err := migrate.CreateFile(dir, "!!!", now); err == nil {
		t.Fatal("expected empty slug to be rejected")
	}
}

func TestNewRequiresConnection(t *testing.T) {
	if _, err := migrate.New(nil, migrate.DefaultDir); err == nil {
		t.Fatal("expected nil db to be rejected")
	}
}
