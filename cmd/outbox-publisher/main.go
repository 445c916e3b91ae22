package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/auctionhouse-backend/pkg/bootstrap"
	"github.com/angelmondragon/auctionhouse-backend/pkg/metrics"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox/registry"
)

func main() {
	proc := bootstrap.Start("outbox-publisher")
	cfg, logg := proc.Config, proc.Logger
	ctx := context.Background()

	dbClient := proc.Database(ctx)
	pubsubClient := proc.PubSub(ctx)

	events, err := registry.NewEventRegistry(cfg.PubSub)
	proc.Must(ctx, "event registry", err)

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Registry:      events,
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	proc.Must(ctx, "outbox publisher", err)

	runCtx, stop := proc.SignalContext(map[string]any{"topics": events.Topics()})
	defer stop()
	proc.ServeMetrics(runCtx)
	logg.Info(runCtx, "starting outbox publisher")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "outbox publisher stopped unexpectedly", err)
		proc.Fail(runCtx)
	}
	logg.Info(runCtx, "outbox publisher shutting down gracefully")
	_ = proc.Close(runCtx)
}
