package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/router"
	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/worker"
	"github.com/angelmondragon/auctionhouse-backend/internal/analytics/writer"
	"github.com/angelmondragon/auctionhouse-backend/pkg/bootstrap"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox/idempotency"
)

func main() {
	proc := bootstrap.Start("analytics-worker")
	cfg, logg := proc.Config, proc.Logger
	ctx := context.Background()

	redisClient := proc.Redis(ctx)
	pubsubClient := proc.PubSub(ctx)
	bqClient := proc.BigQuery(ctx)

	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		proc.Must(ctx, "analytics subscription", errors.New("subscription not configured"))
	}

	claims, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	proc.Must(ctx, "idempotency manager", err)

	rows, err := writer.New(bqClient, writer.Config{
		AuctionEventsTable: cfg.BigQuery.AuctionEventsTable,
		BatchSize:          cfg.BigQuery.BatchSize,
	})
	proc.Must(ctx, "auction events writer", err)
	// registered after the clients so it runs before bigquery closes
	proc.OnClose("auction events writer", func() error { return rows.Flush(context.Background()) })

	routes, err := router.NewRouter(rows, logg, nil)
	proc.Must(ctx, "analytics router", err)

	service, err := worker.NewService(worker.Params{
		Subscription: subscription,
		Handler:      routes,
		Claims:       claims,
		Logger:       logg,
	})
	proc.Must(ctx, "analytics worker", err)

	runCtx, stop := proc.SignalContext(map[string]any{"table": cfg.BigQuery.AuctionEventsTable})
	defer stop()
	proc.ServeMetrics(runCtx)
	logg.Info(runCtx, "analytics worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "analytics worker failed", err)
		proc.Fail(runCtx)
	}
	logg.Info(runCtx, "analytics worker shutting down")
	_ = proc.Close(runCtx)
}
