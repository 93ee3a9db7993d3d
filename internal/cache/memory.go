package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/demandcast/demandcast/internal/forecast"
)

// memoryEntry holds a cached result with its expiry
type memoryEntry struct {
	result    *forecast.Result
	expiresAt time.Time
}

// MemoryCache is the in-process cache backend
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[forecast.CacheKey]*memoryEntry
	ttl     time.Duration
	stopCh  chan struct{}

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache creates a cache with the given entry TTL and starts its
// cleanup goroutine
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = time.Hour
	}

	c := &MemoryCache{
		entries: make(map[forecast.CacheKey]*memoryEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go c.cleanup()

	return c
}

func (c *MemoryCache) Get(ctx context.Context, key forecast.CacheKey) (*forecast.Result, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists || time.Now().After(entry.expiresAt) {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return entry.result, true
}

func (c *MemoryCache) Set(ctx context.Context, key forecast.CacheKey, result *forecast.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &memoryEntry{
		result:    result,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *MemoryCache) InvalidateProduct(ctx context.Context, productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if key.ProductID == productID {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *MemoryCache) Purge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[forecast.CacheKey]*memoryEntry)
	return nil
}

func (c *MemoryCache) Stats() map[string]interface{} {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	return map[string]interface{}{
		"backend":     "memory",
		"entries":     entries,
		"hits":        c.hits.Load(),
		"misses":      c.misses.Load(),
		"ttl_seconds": c.ttl.Seconds(),
	}
}

// cleanup periodically removes expired entries
func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

func (c *MemoryCache) Close() error {
	close(c.stopCh)
	return nil
}
