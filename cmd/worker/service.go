package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

const heartbeatInterval = 30 * time.Second

type consumer interface {
	Run(ctx context.Context) error
}

type pinger func(context.Context) error

type ServiceParams struct {
	Logger               *logger.Logger
	NotificationConsumer consumer
	// Dependencies must all answer a ping before the consumer starts.
	Dependencies         map[string]pinger
}

// Service drives the notification consumer and a debug heartbeat.
type Service struct {
	logg     *logger.Logger
	consumer consumer
	deps     map[string]pinger
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.NotificationConsumer == nil:
		return nil, errors.New("notification consumer is required")
	}
	return &Service{logg: params.Logger, consumer: params.NotificationConsumer, deps: params.Dependencies}, nil
}

// Run blocks until ctx ends or the consumer returns. A consumer error cancels
// the heartbeat and is returned as is.
func (s *Service) Run(ctx context.Context) error {
	if err := s.checkDependencies(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.consumer.Run(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "worker.consumer_failed", err)
		}
		return err
	})
	g.Go(func() error {
		s.heartbeat(gctx)
		return nil
	})
	return g.Wait()
}

func (s *Service) checkDependencies(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for name, ping := range s.deps {
		g.Go(func() error {
			if err := ping(gctx); err != nil {
				s.logg.Error(s.logg.WithField(ctx, "dependency", name), "worker.dependency_down", err)
				return fmt.Errorf("%s ping: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.logg.Info(ctx, "worker.dependencies_ready")
	return nil
}

func (s *Service) heartbeat(ctx context.Context) {
	t := time.NewTicker(heartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.logg.Debug(ctx, "worker.heartbeat")
		}
	}
}
