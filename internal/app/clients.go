package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/replygen-backend/internal/clients/redis"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
	"github.com/yungbote/replygen-backend/internal/realtime"
	"github.com/yungbote/replygen-backend/internal/realtime/bus"
	"github.com/yungbote/replygen-backend/internal/services"
)

type Clients struct {
	Redis        *goredis.Client
	SSEBus       bus.Bus
	Coordination redis.CoordinationStore
	Emitter      services.SSEEmitter
}

// wireClients connects redis when configured. Without it the coordination
// store is process-local and broadcasts go straight to the local hub, which
// is only correct for a single instance.
func wireClients(log *logger.Logger, cfg Config, hub *realtime.SSEHub) (Clients, error) {
	log.Info("Wiring clients...")
	if cfg.Redis.Addr == "" {
		log.Warn("REDIS_ADDR not set; using in-process coordination and broadcast")
		return Clients{
			Coordination: redis.NewMemoryStore(),
			Emitter:      &services.HubEmitter{Hub: hub},
		}, nil
	}

	rdb, err := redis.NewClient(log, cfg.Redis)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	b, err := bus.NewRedisBus(log, rdb, cfg.RedisChannel)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
	}
	return Clients{
		Redis:        rdb,
		SSEBus:       b,
		Coordination: redis.NewCoordinationStore(rdb),
		Emitter:      &services.RedisEmitter{Bus: b, Log: log},
	}, nil
}

func (c *Clients) ping(ctx context.Context) error {
	if c.Redis == nil {
		return nil
	}
	return c.Redis.Ping(ctx).Err()
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
