package auctions

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/internal/cart"
	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/dbtest"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/metrics"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox/payloads"
)

var testAuctionsConfig = config.AuctionsConfig{
	AntiSnipeWindow:   2 * time.Minute,
	PaymentWindow:     48 * time.Hour,
	BidMaxAttempts:    3,
	FinalizeBatchSize: 100,
}

type fixture struct {
	conn      *gorm.DB
	client    *db.Client
	repo      Repository
	registry  *prometheus.Registry
	bids      *BidService
	finalizer *Finalizer
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.FromConn(conn)
	logg := logger.New(logger.Options{ServiceName: "auctions-test", Output: io.Discard})
	registry := prometheus.NewRegistry()
	m := metrics.NewAuctionMetrics(registry)
	repo := NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	bids, err := NewBidService(client, repo, emitter, m, logg, testAuctionsConfig)
	require.NoError(t, err)
	finalizer, err := NewFinalizer(client, repo, cart.NewSeeder(cart.NewRepository(conn)), emitter, m, logg, testAuctionsConfig)
	require.NoError(t, err)

	f := &fixture{
		conn:      conn,
		client:    client,
		repo:      repo,
		registry:  registry,
		bids:      bids,
		finalizer: finalizer,
		now:       time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC),
	}
	bids.now = func() time.Time { return f.now }
	return f
}

type auctionSeed struct {
	starting  string
	increment string
	endsIn    time.Duration
	listing   enums.ListingType
}

type seededAuction struct {
	listing  models.Listing
	sellerID uuid.UUID
}

func (f *fixture) seedAuction(t *testing.T, seed auctionSeed) seededAuction {
	t.Helper()
	if seed.starting == "" {
		seed.starting = "100.00"
	}
	if seed.increment == "" {
		seed.increment = "5.00"
	}
	if seed.endsIn == 0 {
		seed.endsIn = time.Hour
	}
	if seed.listing == "" {
		seed.listing = enums.ListingTypeAuction
	}

	seller := models.User{Email: uuid.NewString() + "@example.com", DisplayName: "Seller"}
	require.NoError(t, f.conn.Create(&seller).Error)
	store := models.Store{Name: "Vintage Finds", OwnerID: seller.ID}
	require.NoError(t, f.conn.Create(&store).Error)

	starting := decimal.RequireFromString(seed.starting)
	endsAt := f.now.Add(seed.endsIn)
	listing := models.Listing{
		StoreID:       store.ID,
		Title:         "1962 Stratocaster",
		Type:          seed.listing,
		Price:         starting,
		IsActive:      true,
		StartingPrice: decimal.NewNullDecimal(starting),
		CurrentBid:    decimal.NewNullDecimal(starting),
		BidIncrement:  decimal.NewNullDecimal(decimal.RequireFromString(seed.increment)),
		AuctionEndsAt: &endsAt,
	}
	if seed.listing == enums.ListingTypeAuction {
		status := enums.AuctionStatusActive
		listing.AuctionStatus = &status
	}
	require.NoError(t, f.conn.Create(&listing).Error)
	require.NoError(t, f.conn.Create(&models.InventoryItem{ListingID: listing.ID, AvailableQty: 1}).Error)
	return seededAuction{listing: listing, sellerID: seller.ID}
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) models.Listing {
	t.Helper()
	var listing models.Listing
	require.NoError(t, f.conn.Where("id = ?", id).First(&listing).Error)
	return listing
}

func (f *fixture) bidRows(t *testing.T, auctionID uuid.UUID) []models.Bid {
	t.Helper()
	var bids []models.Bid
	require.NoError(t, f.conn.Where("auction_id = ?", auctionID).Order("created_at ASC").Find(&bids).Error)
	return bids
}

func (f *fixture) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

// notificationRequests decodes every queued notification_requested payload.
func (f *fixture) notificationRequests(t *testing.T) []payloads.NotificationRequestedEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.conn.
		Where("event_type = ?", enums.EventNotificationRequested).
		Order("created_at ASC").
		Find(&rows).Error)
	out := make([]payloads.NotificationRequestedEvent, 0, len(rows))
	for _, row := range rows {
		var envelope outbox.PayloadEnvelope
		require.NoError(t, json.Unmarshal(row.Payload, &envelope))
		var req payloads.NotificationRequestedEvent
		require.NoError(t, json.Unmarshal(envelope.Data, &req))
		out = append(out, req)
	}
	return out
}

func (f *fixture) clearOutbox(t *testing.T) {
	t.Helper()
	require.NoError(t, f.conn.Where("1 = 1").Delete(&models.OutboxEvent{}).Error)
}

func (f *fixture) placeBid(t *testing.T, auctionID, bidderID uuid.UUID, amount string) PlaceBidResult {
	t.Helper()
	result, err := f.bids.PlaceBid(context.Background(), PlaceBidInput{AuctionID: auctionID, BidderID: bidderID, Amount: amount})
	require.NoError(t, err)
	return result
}

func requireBidError(t *testing.T, err error, kind BidErrorKind) *BidError {
	t.Helper()
	require.Error(t, err)
	bidErr, ok := AsBidError(err)
	require.True(t, ok, "expected *BidError, got %T", err)
	require.Equal(t, kind, bidErr.Kind, bidErr.Error())
	return bidErr
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchesLabels(metric.GetLabel(), labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok {
			if v != pair.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}
