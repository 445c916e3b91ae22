// Package redis wraps go-redis with the key layout and the few atomic
// operations the services rely on.
package redis

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

// Nil is returned by Get when the key does not exist.
const Nil = goredis.Nil

const namespace = "ah"

var (
	// releaseIfOwner deletes KEYS[1] only while it still holds ARGV[1].
	releaseIfOwner = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0`)

	// windowIncr counts a hit and starts the window on the first one.
	windowIncr = goredis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n`)
)

// IdempotencyStore is the subset used by HTTP and event idempotency guards.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
}

type Client struct {
	rdb *goredis.Client
}

// New connects and pings before returning.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	c := newClient(opts)
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "redis_db", opts.DB), "redis.connected")
	}
	return c, nil
}

func newClient(opts *goredis.Options) *Client {
	return &Client{rdb: goredis.NewClient(opts)}
}

// options prefers URL over discrete fields. Pool and timeout settings from
// cfg fill anything the URL left unset.
func options(cfg config.RedisConfig) (*goredis.Options, error) {
	var opts *goredis.Options
	switch {
	case cfg.URL != "":
		parsed, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &goredis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}
	opts.DB = cmp.Or(opts.DB, cfg.DB)
	opts.PoolSize = cmp.Or(opts.PoolSize, cfg.PoolSize)
	opts.MinIdleConns = cmp.Or(opts.MinIdleConns, cfg.MinIdleConns)
	opts.DialTimeout = cmp.Or(opts.DialTimeout, cfg.DialTimeout)
	opts.ReadTimeout = cmp.Or(opts.ReadTimeout, cfg.ReadTimeout)
	opts.WriteTimeout = cmp.Or(opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// DelIfValue removes key only while it still holds expected, and reports
// whether it did.
func (c *Client) DelIfValue(ctx context.Context, key, expected string) (bool, error) {
	n, err := releaseIfOwner.Run(ctx, c.rdb, []string{key}, expected).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FixedWindowAllow counts one hit against scope and reports whether the
// count is still within limit for the current window.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if window <= 0 {
		return false, 0, errors.New("window must be positive")
	}
	n, err := windowIncr.Run(ctx, c.rdb, []string{c.RateLimitKey(scope)}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, err
	}
	return n <= limit, n, nil
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return Key("idempotency", scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return Key("rate_limit", scope)
}

func (c *Client) LockKey(name string) string {
	return Key("lock", name)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key joins parts under the service namespace, dropping blank ones.
func Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}
