package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"finboard-service/internal/domain/interfaces"
)

// redisClient is the subset of *redis.Client the cache needs
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisCache implements interfaces.Cache on Redis
type RedisCache struct {
	client redisClient
}

var _ interfaces.Cache = (*RedisCache)(nil)

// NewRedisCache creates a Redis backed cache
func NewRedisCache(addr, password string, db int) *RedisCache {
	return NewRedisCacheWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client redisClient) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value from Redis
func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set stores a value in Redis; a zero TTL keeps it forever
func (r *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a key from Redis
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Ping checks if the Redis connection is alive
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}
