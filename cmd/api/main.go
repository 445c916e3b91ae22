package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/auctionhouse-backend/api/controllers"
	"github.com/angelmondragon/auctionhouse-backend/api/routes"
	"github.com/angelmondragon/auctionhouse-backend/internal/analytics"
	"github.com/angelmondragon/auctionhouse-backend/internal/auctions"
	"github.com/angelmondragon/auctionhouse-backend/internal/cart"
	"github.com/angelmondragon/auctionhouse-backend/internal/notifications"
	"github.com/angelmondragon/auctionhouse-backend/pkg/bootstrap"
	"github.com/angelmondragon/auctionhouse-backend/pkg/env"
	"github.com/angelmondragon/auctionhouse-backend/pkg/metrics"
	"github.com/angelmondragon/auctionhouse-backend/pkg/outbox"
)

const shutdownTimeout = 10 * time.Second

func main() {
	proc := bootstrap.Start("api")
	cfg, logg := proc.Config, proc.Logger
	ctx := context.Background()

	dbClient := proc.Database(ctx)
	redisClient := proc.Redis(ctx)
	bqClient := proc.BigQuery(ctx)

	auctionMetrics := metrics.NewAuctionMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	auctionRepo := auctions.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())

	bidService, err := auctions.NewBidService(dbClient, auctionRepo, outboxService, auctionMetrics, logg, cfg.Auctions)
	proc.Must(ctx, "bid service", err)

	finalizer, err := auctions.NewFinalizer(dbClient, auctionRepo, cart.NewSeeder(cartRepo), outboxService, auctionMetrics, logg, cfg.Auctions)
	proc.Must(ctx, "auction finalizer", err)

	cartService, err := cart.NewService(cartRepo)
	proc.Must(ctx, "cart service", err)

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	proc.Must(ctx, "notifications service", err)

	analyticsService, err := analytics.NewService(bqClient, cfg.BigQuery.AuctionEventsTable, analytics.Options{
		Cache:  redisClient,
		TTL:    cfg.BigQuery.ReportCacheTTL,
		Logger: logg,
	})
	proc.Must(ctx, "analytics service", err)

	addr := ":" + env.First(cfg.App.Port, "PORT")

	runCtx, stop := proc.SignalContext(map[string]any{"addr": addr})
	defer stop()
	logg.Info(runCtx, "starting api server")

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
		"bigquery": bqClient,
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			redisClient,
			prometheus.DefaultGatherer,
			bidService,
			finalizer,
			cartService,
			notificationsService,
			analyticsService,
			outbox.NewDLQRepository(dbClient.DB()),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		proc.Fail(runCtx)
	}
	logg.Info(runCtx, "api server shutting down gracefully")
	_ = proc.Close(runCtx)
}
