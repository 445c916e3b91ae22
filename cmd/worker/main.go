package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/auctionhouse-backend/internal/notifications"
	"github.com/angelmondragon/auctionhouse-backend/pkg/bootstrap"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox/idempotency"
)

func main() {
	proc := bootstrap.Start("worker")
	cfg, logg := proc.Config, proc.Logger
	ctx := context.Background()

	dbClient := proc.Database(ctx)
	redisClient := proc.Redis(ctx)
	pubsubClient := proc.PubSub(ctx)

	subscription := pubsubClient.NotificationSubscription()
	if subscription == nil {
		proc.Must(ctx, "notification subscription", errors.New("subscription not configured"))
	}

	claims, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	proc.Must(ctx, "idempotency manager", err)

	dispatcher, err := notifications.NewDispatcher(notifications.NewRepository(dbClient.DB()), dbClient, logg)
	proc.Must(ctx, "notification dispatcher", err)

	consumer, err := notifications.NewConsumer(dispatcher, subscription, claims, logg)
	proc.Must(ctx, "notification consumer", err)

	service, err := NewService(ServiceParams{
		Logger:               logg,
		NotificationConsumer: consumer,
		Dependencies: map[string]pinger{
			"database": dbClient.Ping,
			"redis":    redisClient.Ping,
			"pubsub":   pubsubClient.Ping,
		},
	})
	proc.Must(ctx, "worker service", err)

	runCtx, stop := proc.SignalContext(nil)
	defer stop()
	proc.ServeMetrics(runCtx)
	logg.Info(runCtx, "starting worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "worker stopped unexpectedly", err)
		proc.Fail(runCtx)
	}
	logg.Info(runCtx, "worker shutting down gracefully")
	_ = proc.Close(runCtx)
}
