package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/types"
	"github.com/sethvargo/go-retry"
)

const (
	defaultBatchSize      = 1
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

type Config struct {
	AuctionEventsTable string
	BatchSize          int
	RetryPolicy        RetryPolicy
}

// RetryPolicy bounds insert attempts. Zero fields take the package defaults.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaultInitialBackoff
	}
	if p.MaximumBackoff < p.InitialBackoff {
		p.MaximumBackoff = max(defaultMaximumBackoff, p.InitialBackoff)
	}
	return p
}

func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.InitialBackoff)
	b = retry.WithCappedDuration(p.MaximumBackoff, b)
	return retry.WithMaxRetries(uint64(p.MaxAttempts-1), b)
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter appends auction_events rows. Messages arrive concurrently so
// the pending batch sits behind a mutex.
type BigQueryWriter struct {
	client    tableInserter
	table     string
	batchSize int
	retry     RetryPolicy

	mu      sync.Mutex
	pending []types.AuctionEventRow
}

func New(client tableInserter, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.AuctionEventsTable)
	if table == "" {
		return nil, errors.New("auction events table is required")
	}
	size := cfg.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	return &BigQueryWriter{
		client:    client,
		table:     table,
		batchSize: size,
		retry:     cfg.RetryPolicy.withDefaults(),
	}, nil
}

// InsertAuctionEvent queues row and writes the batch once it is full.
func (w *BigQueryWriter) InsertAuctionEvent(ctx context.Context, row types.AuctionEventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, row)
	if len(w.pending) < w.batchSize {
		return nil
	}
	return w.drain(ctx)
}

// Flush writes whatever is queued. Called on shutdown.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.drain(ctx)
}

// drain requires w.mu. Rows stay queued when the insert fails so the next
// flush picks them up again.
func (w *BigQueryWriter) drain(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	rows := make([]any, 0, len(w.pending))
	for i := range w.pending {
		rows = append(rows, &w.pending[i])
	}

	err := retry.Do(ctx, w.retry.backoff(), func(ctx context.Context) error {
		err := w.client.InsertRows(ctx, w.table, rows)
		if err != nil && retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("insert %d rows into %s: %w", len(rows), w.table, err)
	}
	w.pending = w.pending[:0]
	return nil
}
