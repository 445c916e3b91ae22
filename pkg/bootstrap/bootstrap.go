// Package bootstrap holds the start-up sequence shared by every binary:
// environment, config, logger, infrastructure clients and ordered shutdown.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/auctionhouse-backend/pkg/bigquery"
	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db"
	"github.com/angelmondragon/auctionhouse-backend/pkg/instance"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/migrate"
	"github.com/angelmondragon/auctionhouse-backend/pkg/pubsub"
	"github.com/angelmondragon/auctionhouse-backend/pkg/redis"
)

type closer struct {
	name string
	fn   func() error
}

// Process is a running binary. Resources opened through it are closed in
// reverse order by Close.
type Process struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger

	closers []closer
	exit    func(int)
}

// Start loads .env and config then builds the configured logger. It exits
// the process when config is invalid.
func Start(kind string) *Process {
	boot := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		boot.Debug(context.Background(), "no .env file; using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "config.invalid", err)
		os.Exit(1)
	}
	return New(kind, cfg)
}

// New wraps an already loaded config.
func New(kind string, cfg *config.Config) *Process {
	cfg.Service.Kind = kind
	var format string
	if cfg.App.IsDev() {
		format = logger.FormatConsole
	}
	return &Process{
		Kind:   kind,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
			Format:      format,
		}),
		exit: os.Exit,
	}
}

// Must stops the process when a required resource failed to come up.
func (p *Process) Must(ctx context.Context, resource string, err error) {
	if err == nil {
		return
	}
	p.Logger.Error(p.Logger.WithField(ctx, "resource", resource), "resource.unavailable", err)
	p.Fail(ctx)
}

// Fail closes what is open and exits non-zero.
func (p *Process) Fail(ctx context.Context) {
	p.Close(ctx)
	p.exit(1)
}

// OnClose registers fn to run during Close.
func (p *Process) OnClose(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, fn: fn})
}

// Close releases resources newest first and logs any failures.
func (p *Process) Close(ctx context.Context) error {
	var errs error
	for i := len(p.closers) - 1; i >= 0; i-- {
		c := p.closers[i]
		if err := c.fn(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	p.closers = nil
	if errs != nil {
		p.Logger.Error(ctx, "shutdown.close_failed", errs)
	}
	return errs
}

// SignalContext is cancelled on SIGINT or SIGTERM and carries the process
// log fields plus extra.
func (p *Process) SignalContext(extra map[string]any) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	fields := map[string]any{
		"env":         p.Config.App.Env,
		"serviceKind": p.Kind,
		"instance":    instance.ID(),
	}
	for k, v := range extra {
		fields[k] = v
	}
	return p.Logger.WithFields(ctx, fields), stop
}

// ServeMetrics exposes the default Prometheus registry and a liveness probe
// for binaries without the API router. A blank MetricsAddr disables it.
func (p *Process) ServeMetrics(ctx context.Context) {
	addr := p.Config.App.MetricsAddr
	if addr == "" {
		return
	}
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.Logger.Error(p.Logger.WithField(ctx, "addr", addr), "metrics.serve_failed", err)
		}
	}()
	p.OnClose("metrics server", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// Database opens Postgres and applies dev migrations when enabled.
func (p *Process) Database(ctx context.Context) *db.Client {
	client, err := db.New(ctx, p.Config.DB, p.Logger)
	p.Must(ctx, "database", err)
	p.OnClose("database", client.Close)
	p.Must(ctx, "dev migrations", migrate.DevAutoMigrate(ctx, p.Config, p.Logger, client))
	return client
}

func (p *Process) Redis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	p.Must(ctx, "redis", err)
	p.OnClose("redis", client.Close)
	return client
}

func (p *Process) PubSub(ctx context.Context) *pubsub.Client {
	client, err := pubsub.NewClient(ctx, p.Config.GCP, p.Config.PubSub, p.Logger)
	p.Must(ctx, "pubsub", err)
	p.OnClose("pubsub", client.Close)
	return client
}

func (p *Process) BigQuery(ctx context.Context) *bigquery.Client {
	client, err := bigquery.NewClient(ctx, p.Config.GCP, p.Config.BigQuery, p.Logger)
	p.Must(ctx, "bigquery", err)
	p.OnClose("bigquery", client.Close)
	return client
}
