// Package redis holds the go-redis connection used for POS terminal sessions.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/packfinderz-pos/pkg/config"
	"github.com/angelmondragon/packfinderz-pos/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Session keys look like pf:session:pos:<actor>:<key>.
const posSessionNamespace = "pf:session:pos"

var errNotInitialized = errors.New("redis client not initialized")

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	GetEx(context.Context, string, time.Duration) *redis.StringCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client is the narrow key/value surface the session store needs.
type Client struct {
	cmd cmdable
	raw *redis.Client
}

// New dials Redis with the configured pool and timeouts and fails fast when it is unreachable.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"redis_addr": opts.Addr, "redis_db": opts.DB}), "redis.connected")
	}
	return Wrap(raw), nil
}

// Wrap adapts an existing go-redis client, e.g. one pointed at miniredis.
func Wrap(raw *redis.Client) *Client {
	if raw == nil {
		return &Client{}
	}
	return &Client{cmd: raw, raw: raw}
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}

	// Values carried by the URL win over the discrete settings.
	fill(&opts.DB, cfg.DB)
	fill(&opts.PoolSize, cfg.PoolSize)
	fill(&opts.MinIdleConns, cfg.MinIdleConns)
	fill(&opts.DialTimeout, cfg.DialTimeout)
	fill(&opts.ReadTimeout, cfg.ReadTimeout)
	fill(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fill[T int | time.Duration](dst *T, fallback T) {
	if *dst == 0 {
		*dst = fallback
	}
}

// IsNil reports whether err signals a missing key.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Set stores value at key; ttl <= 0 keeps it until deleted.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.cmd == nil {
		return errNotInitialized
	}
	if ttl < 0 {
		ttl = 0
	}
	return c.cmd.Set(ctx, key, value, ttl).Err()
}

// GetRefresh reads key and, when ttl is positive, slides its expiry in the same round trip.
func (c *Client) GetRefresh(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if c.cmd == nil {
		return "", errNotInitialized
	}
	if ttl <= 0 {
		return c.cmd.Get(ctx, key).Result()
	}
	return c.cmd.GetEx(ctx, key, ttl).Result()
}

// Del removes keys; deleting nothing is not an error.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.cmd == nil {
		return errNotInitialized
	}
	if len(keys) == 0 {
		return nil
	}
	return c.cmd.Del(ctx, keys...).Err()
}

// POSSessionKey namespaces one session value of an actor. Blank segments are dropped.
func (c *Client) POSSessionKey(actorID, key string) string {
	var b strings.Builder
	b.WriteString(posSessionNamespace)
	for _, part := range []string{actorID, key} {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

func (c *Client) Ping(ctx context.Context) error {
	if c.cmd == nil {
		return errNotInitialized
	}
	return c.cmd.Ping(ctx).Err()
}

// Close is a no-op for an unwrapped client.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
