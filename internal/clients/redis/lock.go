package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/postforge-backend/internal/pkg/logger"
)

// Lock is a best-effort, advisory mutual-exclusion primitive keyed by
// an arbitrary string (in practice a user id). Acquisition is bounded:
// a caller that cannot get the key within its wait budget fails
// instead of queuing. Release is token-checked so a holder cannot
// delete a lock that expired and was re-acquired by someone else, and
// releasing a non-held lock is a no-op.
type Lock interface {
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

type lock struct {
	log  *logger.Logger
	rdb  *goredis.Client
	poll time.Duration
}

// compare-and-delete; only the holder's token may release
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewLock(log *logger.Logger, rdb *goredis.Client) Lock {
	return &lock{
		log:  log.With("client", "RedisLock"),
		rdb:  rdb,
		poll: 50 * time.Millisecond,
	}
}

func (l *lock) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (string, bool, error) {
	if l == nil || l.rdb == nil {
		return "", false, fmt.Errorf("redis lock not initialized")
	}
	if key == "" {
		return "", false, fmt.Errorf("missing lock key")
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.rdb.SetNX(ctx, lockKey(key), token, ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("lock setnx: %w", err)
		}
		if ok {
			return token, true, nil
		}
		if wait <= 0 || time.Now().Add(l.poll).After(deadline) {
			return "", false, nil
		}
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

func (l *lock) Release(ctx context.Context, key, token string) error {
	if l == nil || l.rdb == nil {
		return fmt.Errorf("redis lock not initialized")
	}
	if key == "" || token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.rdb, []string{lockKey(key)}, token).Err(); err != nil && err != goredis.Nil {
		return fmt.Errorf("lock release: %w", err)
	}
	return nil
}

func lockKey(key string) string {
	return "lock:profile:" + key
}
