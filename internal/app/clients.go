package app

import (
	"fmt"
	"os"
	"strings"

	redisclients "github.com/yungbote/postforge-backend/internal/clients/redis"
	"github.com/yungbote/postforge-backend/internal/pkg/logger"
)

type Clients struct {
	Lock  redisclients.Lock
	Cache redisclients.Cache
}

// wireClients connects redis when REDIS_ADDR is set. Without it the
// lock and cache stay nil: lock-requiring calls fail with a lock
// error and analytics are computed uncached.
func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) == "" {
		log.Warn("REDIS_ADDR not set; distributed lock and analytics cache disabled")
		return Clients{}, nil
	}

	rdb, err := redisclients.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis client: %w", err)
	}
	return Clients{
		Lock:  redisclients.NewLock(log, rdb),
		Cache: redisclients.NewCache(log, rdb),
	}, nil
}
