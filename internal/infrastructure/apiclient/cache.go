package apiclient

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// cacheEntry is a cached payload with its expiry and cleanup timer
type cacheEntry struct {
	data   any
	expiry time.Time
	timer  *time.Timer
	gen    uint64
}

// APICache is a TTL cache for provider responses. Entries expire lazily on
// read and eagerly through a per-entry cleanup timer.
type APICache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	gen     uint64
	now     func() time.Time
	timers  bool
}

// CacheOption configures an APICache
type CacheOption func(*APICache)

// WithClock replaces the time source used for expiry checks
func WithClock(now func() time.Time) CacheOption {
	return func(c *APICache) {
		c.now = now
	}
}

// WithoutCleanupTimers disables eager expiry; entries are only evicted on read
func WithoutCleanupTimers() CacheOption {
	return func(c *APICache) {
		c.timers = false
	}
}

// NewAPICache creates an empty cache
func NewAPICache(opts ...CacheOption) *APICache {
	c := &APICache{
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
		timers:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live entry for key. An expired entry is removed.
func (c *APICache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiry) {
		c.removeLocked(key, entry)
		return nil, false
	}
	return entry.data, true
}

// Set stores data under key for ttl, replacing any previous entry and its timer
func (c *APICache) Set(key string, data any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[key]; ok && prev.timer != nil {
		prev.timer.Stop()
	}

	c.gen++
	entry := &cacheEntry{
		data:   data,
		expiry: c.now().Add(ttl),
		gen:    c.gen,
	}
	if c.timers {
		gen := entry.gen
		entry.timer = time.AfterFunc(ttl, func() {
			c.expire(key, gen)
		})
	}
	c.entries[key] = entry
}

// expire runs from a cleanup timer and only removes the generation it was armed for
func (c *APICache) expire(key string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok && entry.gen == gen {
		delete(c.entries, key)
	}
}

// Delete removes key
func (c *APICache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.removeLocked(key, entry)
	}
}

// Clear removes every entry
func (c *APICache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		c.removeLocked(key, entry)
	}
}

// Size returns the number of stored entries, including expired ones not yet evicted
func (c *APICache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *APICache) removeLocked(key string, entry *cacheEntry) {
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(c.entries, key)
}

// CacheKey builds a deterministic key from a URL and its query params.
// Params are sorted by name so ordering never fragments the cache.
func CacheKey(rawURL string, params map[string]string) string {
	if len(params) == 0 {
		return rawURL
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(rawURL)
	b.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}
