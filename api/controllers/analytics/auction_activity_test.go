package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
)

func activityRequest(target, storeID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("storeId", storeID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestAuctionActivityUsesPreset(t *testing.T) {
	fixed := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	restore := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = restore })

	storeID := uuid.New()
	service := &testAnalyticsService{}
	resp := httptest.NewRecorder()
	AuctionActivity(service, nil)(resp, activityRequest("/api/admin/v1/analytics/stores/x/auctions?preset=7d", storeID.String()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if service.last.SellerStoreID != storeID.String() {
		t.Fatalf("expected store %s got %s", storeID, service.last.SellerStoreID)
	}
	if service.period() != 7*24*time.Hour || !service.last.End.Equal(fixed) {
		t.Fatalf("unexpected window %s..%s", service.last.Start, service.last.End)
	}
}

func TestAuctionActivityExplicitRange(t *testing.T) {
	service := &testAnalyticsService{}
	resp := httptest.NewRecorder()
	target := "/api/admin/v1/analytics/stores/x/auctions?from=2026-05-01T00:00:00Z&to=2026-05-03T00:00:00Z"
	AuctionActivity(service, nil)(resp, activityRequest(target, uuid.NewString()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if service.period() != 48*time.Hour {
		t.Fatalf("expected 48h window got %s", service.period())
	}
}

func TestAuctionActivityRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		target  string
		storeID string
	}{
		"bad store":      {target: "/x", storeID: "nope"},
		"bad preset":     {target: "/x?preset=1y", storeID: uuid.NewString()},
		"half range":     {target: "/x?from=2026-05-01T00:00:00Z", storeID: uuid.NewString()},
		"reversed range": {target: "/x?from=2026-05-03T00:00:00Z&to=2026-05-01T00:00:00Z", storeID: uuid.NewString()},
		"too wide":       {target: "/x?from=2024-01-01T00:00:00Z&to=2026-01-01T00:00:00Z", storeID: uuid.NewString()},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			service := &testAnalyticsService{}
			resp := httptest.NewRecorder()
			AuctionActivity(service, nil)(resp, activityRequest(tc.target, tc.storeID))
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
			if service.called() {
				t.Fatal("service should not be invoked")
			}
		})
	}
}

func TestAuctionActivityPropagatesServiceError(t *testing.T) {
	service := &testAnalyticsService{err: pkgerrors.New(pkgerrors.CodeDependency, "bigquery down")}
	resp := httptest.NewRecorder()
	AuctionActivity(service, nil)(resp, activityRequest("/x", uuid.NewString()))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
