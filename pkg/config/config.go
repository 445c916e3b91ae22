// Package config loads process settings from AUCTIONHOUSE_* environment
// variables. Every binary shares one Config; each command reads the slices it
// needs.
package config

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	BidRateLimit BidRateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Auctions     AuctionsConfig
	Cron         CronConfig
}

// Load parses the environment and reports every invalid setting at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	err := multierr.Combine(
		cfg.DB.resolveDSN(),
		cfg.Auctions.validate(),
		cfg.Outbox.validate(),
		cfg.Cron.validate(),
		positive(EnvJWTExpirationMinutes, time.Duration(cfg.JWT.ExpirationMinutes)),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"AUCTIONHOUSE_APP_ENV" required:"true"`
	Port         string   `envconfig:"AUCTIONHOUSE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"AUCTIONHOUSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"AUCTIONHOUSE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"AUCTIONHOUSE_CORS_ORIGINS"`
	MetricsAddr  string   `envconfig:"AUCTIONHOUSE_METRICS_ADDR" default:":9090"`
}

func (a AppConfig) IsDev() bool  { return strings.EqualFold(a.Env, AppEnvDev) }
func (a AppConfig) IsProd() bool { return strings.EqualFold(a.Env, AppEnvProd) }

type ServiceConfig struct {
	Kind string `envconfig:"AUCTIONHOUSE_SERVICE_KIND" default:"api"`
}

// DBConfig accepts either a full DSN or its discrete parts.
type DBConfig struct {
	DSN    string `envconfig:"AUCTIONHOUSE_DB_DSN"`
	Driver string `envconfig:"AUCTIONHOUSE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"AUCTIONHOUSE_DB_HOST"`
	Port     int    `envconfig:"AUCTIONHOUSE_DB_PORT" default:"5432"`
	User     string `envconfig:"AUCTIONHOUSE_DB_USER"`
	Password string `envconfig:"AUCTIONHOUSE_DB_PASSWORD"`
	Name     string `envconfig:"AUCTIONHOUSE_DB_NAME"`
	SSLMode  string `envconfig:"AUCTIONHOUSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AUCTIONHOUSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AUCTIONHOUSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AUCTIONHOUSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AUCTIONHOUSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}
	var missing []string
	for env, v := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if v == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   db.Host + ":" + strconv.Itoa(db.Port),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"AUCTIONHOUSE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AUCTIONHOUSE_REDIS_ADDR"`
	Password     string        `envconfig:"AUCTIONHOUSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"AUCTIONHOUSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AUCTIONHOUSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AUCTIONHOUSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AUCTIONHOUSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AUCTIONHOUSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AUCTIONHOUSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AUCTIONHOUSE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AUCTIONHOUSE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AUCTIONHOUSE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// BidRateLimitConfig bounds how many bids one bidder may submit per window.
type BidRateLimitConfig struct {
	Window time.Duration `envconfig:"AUCTIONHOUSE_BID_RATE_LIMIT_WINDOW" default:"10s"`
	Limit  int           `envconfig:"AUCTIONHOUSE_BID_RATE_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AUCTIONHOUSE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"AUCTIONHOUSE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	HTTPIdempotencyTTL   time.Duration `envconfig:"AUCTIONHOUSE_HTTP_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"AUCTIONHOUSE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"AUCTIONHOUSE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"AUCTIONHOUSE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"AUCTIONHOUSE_PUBSUB_NOTIFICATION_TOPIC" default:"ah-notification-events"`
	NotificationSubscription string `envconfig:"AUCTIONHOUSE_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	AnalyticsTopic           string `envconfig:"AUCTIONHOUSE_PUBSUB_ANALYTICS_TOPIC" default:"ah-auction-events"`
	AnalyticsSubscription    string `envconfig:"AUCTIONHOUSE_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset            string `envconfig:"AUCTIONHOUSE_BIGQUERY_DATASET" default:"auctionhouse"`
	AuctionEventsTable string `envconfig:"AUCTIONHOUSE_BIGQUERY_AUCTION_EVENTS_TABLE" default:"auction_events"`
	BatchSize          int    `envconfig:"AUCTIONHOUSE_BIGQUERY_BATCH_SIZE" default:"1"`

	ReportCacheTTL time.Duration `envconfig:"AUCTIONHOUSE_ANALYTICS_REPORT_CACHE_TTL" default:"5m"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"AUCTIONHOUSE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"AUCTIONHOUSE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"AUCTIONHOUSE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o OutboxConfig) validate() error {
	return multierr.Combine(
		positive(EnvOutboxBatchSize, time.Duration(o.BatchSize)),
		positive(EnvOutboxPollMS, time.Duration(o.PollIntervalMS)),
		positive(EnvOutboxMaxAttempts, time.Duration(o.MaxAttempts)),
	)
}

// AuctionsConfig carries the bidding and settlement rules.
type AuctionsConfig struct {
	AntiSnipeWindow   time.Duration `envconfig:"AUCTIONHOUSE_AUCTION_ANTI_SNIPE_WINDOW" default:"2m"`
	PaymentWindow     time.Duration `envconfig:"AUCTIONHOUSE_AUCTION_PAYMENT_WINDOW" default:"48h"`
	BidMaxAttempts    int           `envconfig:"AUCTIONHOUSE_AUCTION_BID_MAX_ATTEMPTS" default:"3"`
	FinalizeBatchSize int           `envconfig:"AUCTIONHOUSE_AUCTION_FINALIZE_BATCH_SIZE" default:"100"`
}

func (a AuctionsConfig) validate() error {
	return multierr.Combine(
		positive(EnvAuctionAntiSnipeWindow, a.AntiSnipeWindow),
		positive(EnvAuctionPaymentWindow, a.PaymentWindow),
		positive(EnvAuctionBidMaxAttempts, time.Duration(a.BidMaxAttempts)),
	)
}

type CronConfig struct {
	Interval                 time.Duration `envconfig:"AUCTIONHOUSE_CRON_INTERVAL" default:"20s"`
	LockTTL                  time.Duration `envconfig:"AUCTIONHOUSE_CRON_LOCK_TTL" default:"2m"`
	NotificationRetention    time.Duration `envconfig:"AUCTIONHOUSE_CRON_NOTIFICATION_RETENTION" default:"720h"`
	OutboxPublishedRetention time.Duration `envconfig:"AUCTIONHOUSE_CRON_OUTBOX_RETENTION" default:"168h"`
}

// validate insists the lock outlives a tick so two replicas never overlap.
func (c CronConfig) validate() error {
	err := positive(EnvCronInterval, c.Interval)
	if c.LockTTL < c.Interval {
		err = multierr.Append(err, fmt.Errorf("%s must be at least %s", EnvCronLockTTL, EnvCronInterval))
	}
	return err
}

// positive takes ints through time.Duration so one helper covers both.
func positive(env string, v time.Duration) error {
	if v <= 0 {
		return fmt.Errorf("%s must be positive", env)
	}
	return nil
}
