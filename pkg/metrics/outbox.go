package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Relay outcomes for one outbox row.
const (
	RelayPublished  = "published"
	RelayRetry      = "retry"
	RelayDeadLetter = "dead_letter"
)

// OutboxMetrics tracks the outbox relay. A nil value records nothing.
type OutboxMetrics struct {
	relayed *prometheus.CounterVec
	latency *prometheus.HistogramVec
	batch   prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return nil
	}
	m := &OutboxMetrics{
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "relayed_total",
			Help:      "Outbox rows settled by the relay, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "publish_lag_seconds",
			Help:      "Time from outbox commit to broker acknowledgement.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"topic"}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "batch_rows",
			Help:      "Rows claimed per relay batch.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
	}
	reg.MustRegister(m.relayed, m.latency, m.batch)
	return m
}

func (m *OutboxMetrics) ObserveBatch(rows int) {
	if m == nil {
		return
	}
	m.batch.Observe(float64(rows))
}

func (m *OutboxMetrics) IncRelayed(eventType, outcome string) {
	if m == nil {
		return
	}
	m.relayed.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

// ObservePublishLag records how long a row waited between commit and ack.
func (m *OutboxMetrics) ObservePublishLag(topic string, lag time.Duration) {
	if m == nil || lag < 0 {
		return
	}
	m.latency.WithLabelValues(normalizeLabel(topic)).Observe(lag.Seconds())
}
