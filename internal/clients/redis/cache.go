package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/postforge-backend/internal/pkg/logger"
)

// Cache is an invalidate-on-write key/value store for derived state
// (analytics, evolution scores). A Get after Invalidate is always a
// miss; repeated invalidation is a safe no-op.
type Cache interface {
	Get(ctx context.Context, key string, out interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type cache struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewCache(log *logger.Logger, rdb *goredis.Client) Cache {
	return &cache{log: log.With("client", "RedisCache"), rdb: rdb}
}

func (c *cache) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, fmt.Errorf("redis cache not initialized")
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			// Treat a corrupt entry as a miss; it will be rewritten.
			c.log.Warn("dropping unreadable cache entry", "key", key, "error", err)
			_ = c.rdb.Del(ctx, key).Err()
			return false, nil
		}
	}
	return true, nil
}

func (c *cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis cache not initialized")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *cache) Invalidate(ctx context.Context, key string) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis cache not initialized")
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
