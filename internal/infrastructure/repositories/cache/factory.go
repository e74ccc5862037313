package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"finboard-service/internal/domain/interfaces"
	"finboard-service/internal/infrastructure/config"
	"finboard-service/internal/infrastructure/logging"
)

// CacheType represents the type of cache implementation
type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
)

const pingTimeout = 5 * time.Second

// Config holds cache configuration options
type Config struct {
	Type     CacheType
	RedisURL string
	RedisDB  int
	Password string
}

// ConfigFromLayout maps the layout section of the application config
func ConfigFromLayout(cfg config.LayoutConfig) Config {
	return Config{
		Type:     CacheType(cfg.Backend),
		RedisURL: cfg.Redis.Addr,
		RedisDB:  cfg.Redis.DB,
		Password: cfg.Redis.Password,
	}
}

// Factory provides methods to create cache instances
type Factory struct{}

// NewFactory creates a new cache factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateCache creates a cache instance based on configuration
func (f *Factory) CreateCache(cfg Config) (interfaces.Cache, error) {
	ctx := context.Background()

	switch cfg.Type {
	case CacheTypeMemory, "":
		logging.Info(ctx, "Creating memory cache", logging.Fields{
			"type": "memory",
		})
		return NewMemoryCache(), nil

	case CacheTypeRedis:
		logging.Info(ctx, "Creating Redis cache", logging.Fields{
			"type":     "redis",
			"addr":     cfg.RedisURL,
			"database": cfg.RedisDB,
		})
		return f.createRedisCache(cfg)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, cfg.Type)
	}
}

// createRedisCache creates and tests the Redis connection
func (f *Factory) createRedisCache(cfg Config) (interfaces.Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.Password,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisURL, err)
	}

	logging.Info(context.Background(), "Redis connection established successfully", logging.Fields{
		"addr":     cfg.RedisURL,
		"database": cfg.RedisDB,
	})
	return NewRedisCacheWithClient(rdb), nil
}
