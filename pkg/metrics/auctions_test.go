package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestAuctionMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAuctionMetrics(reg)

	m.IncBidAccepted(true)
	m.IncBidAccepted(false)
	m.IncBidRejected("bid_too_low")
	m.IncBidRejected("")
	m.IncBidRetry()
	m.IncFinalized("finalized")

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"auction_bids_accepted_total", nil, 2},
		{"auction_extensions_total", nil, 1},
		{"auction_bid_retries_total", nil, 1},
		{"auction_bids_rejected_total", map[string]string{"reason": "bid_too_low"}, 1},
		{"auction_bids_rejected_total", map[string]string{"reason": "unknown"}, 1},
		{"auction_finalizations_total", map[string]string{"outcome": "finalized"}, 1},
	}
	for _, c := range checks {
		if got := sample(t, reg, c.name, c.labels).GetCounter().GetValue(); got != c.want {
			t.Fatalf("%s%v: expected %v, got %v", c.name, c.labels, c.want, got)
		}
	}
}

func TestAuctionMetricsNilSafe(t *testing.T) {
	m := NewAuctionMetrics(nil)
	if m != nil {
		t.Fatal("expected nil metrics without a registerer")
	}
	m.IncBidAccepted(true)
	m.IncBidRejected("bid_too_low")
	m.IncBidRetry()
	m.IncFinalized("finalized")
}
