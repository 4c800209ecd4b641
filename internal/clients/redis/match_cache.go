package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/waxfeed-backend/internal/platform/envutil"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

// MatchCache stores serialized match lists. A miss is (nil, false, nil).
type MatchCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Close() error
}

type matchCache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewMatchCache(log *logger.Logger) (MatchCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     envutil.String("REDIS_PASSWORD", ""),
		DB:           envutil.Int("REDIS_DB", 0),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &matchCache{
		log:    log.With("client", "RedisMatchCache"),
		rdb:    rdb,
		prefix: strings.TrimSuffix(envutil.String("REDIS_KEY_PREFIX", "waxfeed"), ":") + ":",
	}, nil
}

func (c *matchCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, fmt.Errorf("redis match cache not initialized")
	}
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *matchCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis match cache not initialized")
	}
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, c.prefix+key, val, ttl).Err()
}

func (c *matchCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// NoopMatchCache always misses. Used when REDIS_ADDR is unset.
type NoopMatchCache struct{}

func (NoopMatchCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NoopMatchCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (NoopMatchCache) Close() error { return nil }
