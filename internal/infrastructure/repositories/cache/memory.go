package cache

import (
	"context"
	"sync"
	"time"

	"finboard-service/internal/domain/interfaces"
)

type cacheItem struct {
	value     string
	expiresAt time.Time
}

func (item *cacheItem) isExpired(now time.Time) bool {
	return !item.expiresAt.IsZero() && now.After(item.expiresAt)
}

// MemoryCache implements interfaces.Cache in process memory. A zero TTL
// stores the value without expiry.
type MemoryCache struct {
	items map[string]*cacheItem
	mu    sync.RWMutex
	now   func() time.Time
}

var _ interfaces.Cache = (*MemoryCache)(nil)

// MemoryOption configures a MemoryCache
type MemoryOption func(*MemoryCache)

// WithMemoryClock injects the time source used for expiry
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		items: make(map[string]*cacheItem),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key
func (c *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return "", ErrKeyNotFound
	}
	if item.isExpired(c.now()) {
		_ = c.Delete(ctx, key)
		return "", ErrKeyExpired
	}
	return item.value, nil
}

// Set stores value under key and evicts expired entries
func (c *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, item := range c.items {
		if item.isExpired(now) {
			delete(c.items, k)
		}
	}

	item := &cacheItem{value: value}
	if ttl > 0 {
		item.expiresAt = now.Add(ttl)
	}
	c.items[key] = item
	return nil
}

// Delete removes key
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Size returns the number of stored entries, expired ones included
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Cleanup evicts expired entries
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if item.isExpired(now) {
			delete(c.items, key)
		}
	}
}
