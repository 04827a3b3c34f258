package streamcache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mubi1000/internal/config"
)

// OpenBackend builds the backend selected by cfg.Cache.
func OpenBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Cache.Backend {
	case config.BackendJSON, "":
		return NewJSONBackend(cfg.Cache.Path)
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.Cache.Path)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		return NewRedisBackend(client, cfg.Cache.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}
}
