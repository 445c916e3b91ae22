package config

// EnvPrefix is handed to envconfig; every field tag carries the full name anyway.
const EnvPrefix = "AUCTIONHOUSE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "AUCTIONHOUSE_APP_ENV"
	EnvPort   = "AUCTIONHOUSE_APP_PORT"

	EnvDBDSN  = "AUCTIONHOUSE_DB_DSN"
	EnvDBHost = "AUCTIONHOUSE_DB_HOST"
	EnvDBUser = "AUCTIONHOUSE_DB_USER"
	EnvDBName = "AUCTIONHOUSE_DB_NAME"

	EnvRedisURL = "AUCTIONHOUSE_REDIS_URL"

	EnvJWTSecret            = "AUCTIONHOUSE_JWT_SECRET"
	EnvJWTIssuer            = "AUCTIONHOUSE_JWT_ISSUER"
	EnvJWTExpirationMinutes = "AUCTIONHOUSE_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "AUCTIONHOUSE_GCP_PROJECT_ID"

	EnvPubSubNotificationSub = "AUCTIONHOUSE_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubAnalyticsSub    = "AUCTIONHOUSE_PUBSUB_ANALYTICS_SUBSCRIPTION"

	EnvOutboxBatchSize   = "AUCTIONHOUSE_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxPollMS      = "AUCTIONHOUSE_OUTBOX_PUBLISH_POLL_MS"
	EnvOutboxMaxAttempts = "AUCTIONHOUSE_OUTBOX_MAX_ATTEMPTS"

	EnvAuctionAntiSnipeWindow = "AUCTIONHOUSE_AUCTION_ANTI_SNIPE_WINDOW"
	EnvAuctionPaymentWindow   = "AUCTIONHOUSE_AUCTION_PAYMENT_WINDOW"
	EnvAuctionBidMaxAttempts  = "AUCTIONHOUSE_AUCTION_BID_MAX_ATTEMPTS"

	EnvCronInterval = "AUCTIONHOUSE_CRON_INTERVAL"
	EnvCronLockTTL  = "AUCTIONHOUSE_CRON_LOCK_TTL"
)
