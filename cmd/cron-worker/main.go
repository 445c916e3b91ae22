package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/auctionhouse-backend/internal/auctions"
	"github.com/angelmondragon/auctionhouse-backend/internal/cart"
	"github.com/angelmondragon/auctionhouse-backend/internal/cron"
	"github.com/angelmondragon/auctionhouse-backend/internal/notifications"
	"github.com/angelmondragon/auctionhouse-backend/pkg/bootstrap"
	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/metrics"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox"
)

const housekeepingPeriod = time.Hour

func main() {
	proc := bootstrap.Start("cron-worker")
	cfg, logg := proc.Config, proc.Logger
	ctx := context.Background()

	dbClient := proc.Database(ctx)
	redisClient := proc.Redis(ctx)

	registry, err := buildRegistry(cfg, logg, dbClient)
	proc.Must(ctx, "cron jobs", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+cmp.Or(cfg.App.Env, "local")), cfg.Cron.LockTTL)
	proc.Must(ctx, "cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	proc.Must(ctx, "cron service", err)

	runCtx, stop := proc.SignalContext(map[string]any{"interval": cfg.Cron.Interval.String()})
	defer stop()
	proc.ServeMetrics(runCtx)
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		proc.Fail(runCtx)
	}
	logg.Info(runCtx, "cron worker shutting down gracefully")
	_ = proc.Close(runCtx)
}

// buildRegistry runs finalization on every tick; housekeeping runs hourly.
func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	gdb := dbClient.DB()

	auctionMetrics := metrics.NewAuctionMetrics(prometheus.DefaultRegisterer)
	outboxRepo := outbox.NewRepository(gdb)
	finalizer, err := auctions.NewFinalizer(
		dbClient,
		auctions.NewRepository(gdb),
		cart.NewSeeder(cart.NewRepository(gdb)),
		outbox.NewService(outboxRepo, logg),
		auctionMetrics,
		logg,
		cfg.Auctions,
	)
	if err != nil {
		return nil, fmt.Errorf("auction finalizer: %w", err)
	}

	finalizationJob, err := cron.NewAuctionFinalizationJob(cron.AuctionFinalizationJobParams{
		Logger:    logg,
		Finalizer: finalizer,
	})
	if err != nil {
		return nil, err
	}

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(gdb),
		Retention:  cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, err
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		Retention:   cfg.Cron.OutboxPublishedRetention,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	registry.Register(finalizationJob)
	registry.RegisterEvery(cleanupJob, housekeepingPeriod)
	registry.RegisterEvery(retentionJob, housekeepingPeriod)
	return registry, nil
}
