package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/metrics"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxErrorBackoff    = 10 * time.Second
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherFactory func(topic string) publisher

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	DLQRepository    dlqRepository
	Registry         eventResolver
	Metrics          *metrics.OutboxMetrics
	PublisherFactory publisherFactory
}

// Service relays committed outbox rows to Pub/Sub. Each claimed row ends the
// batch published, rescheduled for another attempt, or dead-lettered.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	pubsub       pubSubClient
	repo         outboxRepository
	dlq          dlqRepository
	resolver     eventResolver
	metrics      *metrics.OutboxMetrics
	publishers   *publisherCache
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}
	factory := params.PublisherFactory
	if factory == nil {
		factory = orderedPublishers(params.PubSub)
	}
	cfg := params.Config.Outbox
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		repo:         params.Repository,
		dlq:          params.DLQRepository,
		resolver:     params.Registry,
		metrics:      params.Metrics,
		publishers:   newPublisherCache(factory),
		batchSize:    positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
		now:          db.NowUTC,
	}, nil
}

// Run drains the outbox until ctx ends. A full batch is followed immediately
// by the next one; an empty batch waits one poll interval; a failing batch
// backs off exponentially up to maxErrorBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}
	defer s.publishers.stop()

	backoff := retry.WithJitterPercent(10, errorBackoff(s.pollInterval))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		processed, err := s.processBatch(ctx)
		wait := s.pollInterval
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox.batch_failed", err)
			wait, _ = backoff.Next()
		case processed:
			backoff = retry.WithJitterPercent(10, errorBackoff(s.pollInterval))
			continue
		default:
			backoff = retry.WithJitterPercent(10, errorBackoff(s.pollInterval))
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func errorBackoff(base time.Duration) retry.Backoff {
	return retry.WithCappedDuration(maxErrorBackoff, retry.NewExponential(base))
}

// inflight is a row whose message has been handed to the publisher.
type inflight struct {
	event    models.OutboxEvent
	resolved *registry.ResolvedEvent
	pub      publisher
	msg      *gcppubsub.Message
	result   publishResult
}

// processBatch claims a batch under row locks, hands every message to its
// publisher before waiting on any result so Pub/Sub can batch them, then
// settles each row. It reports whether any row was claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	claimed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(events)

		publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		sent := make([]inflight, 0, len(events))
		for _, event := range events {
			resolved, err := s.resolver.Resolve(event)
			if err != nil {
				if err := s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err); err != nil {
					return err
				}
				continue
			}
			f, err := s.send(publishCtx, event, resolved)
			if err != nil {
				if err := s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err); err != nil {
					return err
				}
				continue
			}
			sent = append(sent, f)
		}
		for _, f := range sent {
			if err := s.settle(publishCtx, ctx, tx, f); err != nil {
				return err
			}
		}
		return nil
	})
	s.metrics.ObserveBatch(claimed)
	return claimed > 0, err
}

func (s *Service) send(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) (inflight, error) {
	topic := resolved.Route.Topic
	pub := s.publishers.get(topic)
	if pub == nil {
		return inflight{}, registry.Permanent(fmt.Errorf("no publisher for topic %s", topic))
	}
	msg := &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: event.AggregateID.String(),
		Attributes: map[string]string{
			outbox.AttrEventID:       resolved.Envelope.EventID,
			outbox.AttrEventType:     string(event.EventType),
			outbox.AttrAggregateType: string(event.AggregateType),
			outbox.AttrAggregateID:   event.AggregateID.String(),
			outbox.AttrCreatedAt:     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	result := pub.Publish(ctx, msg)
	if result == nil {
		return inflight{}, registry.Permanent(fmt.Errorf("publisher for %s returned no result", topic))
	}
	return inflight{event: event, resolved: resolved, pub: pub, msg: msg, result: result}, nil
}

// settle waits for the broker and records the outcome on the row. Only
// bookkeeping failures are returned.
func (s *Service) settle(publishCtx, ctx context.Context, tx *gorm.DB, f inflight) error {
	event := f.event
	_, pubErr := f.result.Get(publishCtx)
	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncRelayed(string(event.EventType), metrics.RelayPublished)
		s.metrics.ObservePublishLag(f.resolved.Route.Topic, s.now().Sub(event.CreatedAt))
		s.logg.Debug(s.logg.WithFields(ctx, rowFields(event, f.resolved)), "outbox.published")
		return nil
	}

	// a failed ordered publish pauses its key until resumed
	if r, ok := f.pub.(interface{ ResumePublish(string) }); ok {
		r.ResumePublish(f.msg.OrderingKey)
	}
	if errors.Is(pubErr, registry.ErrNonRetryable) {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, pubErr)
	}
	if event.AttemptCount+1 >= s.maxAttempts {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", pubErr))
	}
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	s.metrics.IncRelayed(string(event.EventType), metrics.RelayRetry)
	fields := rowFields(event, f.resolved)
	fields["error"] = pubErr.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox.publish_retry")
	return nil
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      s.now(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.IncRelayed(string(event.EventType), metrics.RelayDeadLetter)
	fields := rowFields(event, nil)
	fields["error_reason"] = reason
	fields["error"] = msg
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox.dead_lettered")
	return nil
}

func rowFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if resolved != nil {
		fields["topic"] = resolved.Route.Topic
		fields["event_id"] = resolved.Envelope.EventID
	}
	return fields
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// publisherCache holds one publisher per topic for the life of the relay.
type publisherCache struct {
	mu      sync.Mutex
	factory publisherFactory
	byTopic map[string]publisher
}

func newPublisherCache(factory publisherFactory) *publisherCache {
	return &publisherCache{factory: factory, byTopic: map[string]publisher{}}
}

func (c *publisherCache) get(topic string) publisher {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.byTopic[topic]; ok {
		return pub
	}
	pub := c.factory(topic)
	if pub != nil {
		c.byTopic[topic] = pub
	}
	return pub
}

// stop flushes and releases every publisher.
func (c *publisherCache) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, pub := range c.byTopic {
		if s, ok := pub.(interface{ Stop() }); ok {
			s.Stop()
		}
		delete(c.byTopic, topic)
	}
}

// orderedPublishers enables message ordering so events for one aggregate
// reach subscribers in commit order.
func orderedPublishers(client pubSubClient) publisherFactory {
	return func(topic string) publisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		p.EnableMessageOrdering = true
		return gcpPublisher{p}
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
