package app

import (
	"fmt"

	"github.com/yungbote/waxfeed-backend/internal/clients/redis"
	"github.com/yungbote/waxfeed-backend/internal/platform/envutil"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

type Clients struct {
	MatchCache redis.MatchCache
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var cache redis.MatchCache = redis.NoopMatchCache{}
	if envutil.String("REDIS_ADDR", "") != "" {
		c, err := redis.NewMatchCache(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis match cache: %w", err)
		}
		cache = c
	} else {
		log.Info("REDIS_ADDR not set, match cache disabled")
	}

	return Clients{MatchCache: cache}, nil
}

func (c Clients) Close() {
	if c.MatchCache != nil {
		_ = c.MatchCache.Close()
	}
}
