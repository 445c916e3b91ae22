package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AuctionMetrics counts bid outcomes and finalization results. A nil value records nothing.
type AuctionMetrics struct {
	bidsAccepted prometheus.Counter
	bidsRejected *prometheus.CounterVec
	bidRetries   prometheus.Counter
	extensions   prometheus.Counter
	finalized    *prometheus.CounterVec
}

func NewAuctionMetrics(reg prometheus.Registerer) *AuctionMetrics {
	if reg == nil {
		return nil
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	m := &AuctionMetrics{
		bidsAccepted: counter("auction_bids_accepted_total", "Bids committed."),
		bidRetries:   counter("auction_bid_retries_total", "Bid transactions retried after contention."),
		extensions:   counter("auction_extensions_total", "Deadlines pushed out by late bids."),
		bidsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_bids_rejected_total",
			Help: "Bids refused, by reason.",
		}, []string{"reason"}),
		finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_finalizations_total",
			Help: "Per-auction finalization results, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.bidsAccepted, m.bidsRejected, m.bidRetries, m.extensions, m.finalized)
	return m
}

func (m *AuctionMetrics) IncBidAccepted(extended bool) {
	if m == nil {
		return
	}
	m.bidsAccepted.Inc()
	if extended {
		m.extensions.Inc()
	}
}

func (m *AuctionMetrics) IncBidRejected(reason string) {
	if m != nil {
		m.bidsRejected.WithLabelValues(normalizeLabel(reason)).Inc()
	}
}

func (m *AuctionMetrics) IncBidRetry() {
	if m != nil {
		m.bidRetries.Inc()
	}
}

func (m *AuctionMetrics) IncFinalized(outcome string) {
	if m != nil {
		m.finalized.WithLabelValues(normalizeLabel(outcome)).Inc()
	}
}
