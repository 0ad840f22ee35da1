package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/digitos-team/masala-software/pkg/config"
	"github.com/digitos-team/masala-software/pkg/logger"
)

// Keys look like masala:<kind>:<parts...>.
const keyNamespace = "masala"

const (
	kindIdempotency = "idempotency"
	kindRateLimit   = "rate_limit"
	kindLock        = "lock"
)

// deletes KEYS[1] only while it still holds ARGV[1]
const compareAndDeleteLua = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`

var errNotInitialized = errors.New("redis client not initialized")

// commands is the slice of go-redis the helpers below rely on.
type commands interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	PExpire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Client backs idempotent replays and write rate limits in the API, the
// cron run lock and event dedupe in the workers.
type Client struct {
	cmds commands
	conn *redis.Client
}

// New dials Redis from cfg and fails unless PING succeeds.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"redis_addr": opts.Addr,
			"redis_db":   opts.DB,
			"pool_size":  opts.PoolSize,
		}), "redis connection established")
	}
	return &Client{cmds: conn, conn: conn}, nil
}

// options prefers the URL and lets explicit config fill whatever the URL
// left unset.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
		if opts.DB == 0 {
			opts.DB = cfg.DB
		}
	case cfg.Address == "":
		return nil, errors.New("redis url or address is required")
	}

	fill := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&opts.DialTimeout, cfg.DialTimeout)
	fill(&opts.ReadTimeout, cfg.ReadTimeout)
	fill(&opts.WriteTimeout, cfg.WriteTimeout)
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	return opts, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.cmds == nil {
		return errNotInitialized
	}
	return c.cmds.Ping(ctx).Err()
}

// Get returns redis.Nil when key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.cmds == nil {
		return "", errNotInitialized
	}
	return c.cmds.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.cmds == nil {
		return errNotInitialized
	}
	return c.cmds.Set(ctx, key, value, ttl).Err()
}

// SetNX writes value only if key is absent and reports whether it did.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.cmds == nil {
		return false, errNotInitialized
	}
	return c.cmds.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.cmds == nil {
		return errNotInitialized
	}
	return c.cmds.Del(ctx, keys...).Err()
}

// CompareAndDelete removes key only while it still holds value, in one round
// trip. It reports whether a key was removed.
func (c *Client) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	if c.cmds == nil {
		return false, errNotInitialized
	}
	n, err := c.cmds.Eval(ctx, compareAndDeleteLua, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Window is the state of one fixed rate-limit window after a hit.
type Window struct {
	Allowed bool
	Count   int64
	ResetIn time.Duration
}

// FixedWindowAllow counts a hit against scope. The first hit opens the
// window; once count passes limit every hit is refused until the key
// expires.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (Window, error) {
	if c.cmds == nil {
		return Window{}, errNotInitialized
	}
	counter := c.RateLimitKey(scope)
	count, err := c.cmds.Incr(ctx, counter).Result()
	if err != nil {
		return Window{}, err
	}
	resetIn := window
	if count == 1 {
		if err := c.cmds.PExpire(ctx, counter, window).Err(); err != nil {
			return Window{}, err
		}
	} else if ttl, err := c.cmds.PTTL(ctx, counter).Result(); err == nil && ttl > 0 {
		resetIn = ttl
	}
	return Window{Allowed: count <= limit, Count: count, ResetIn: resetIn}, nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return key(kindIdempotency, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return key(kindRateLimit, scope)
}

func (c *Client) LockKey(name string) string {
	return key(kindLock, name)
}

func key(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
