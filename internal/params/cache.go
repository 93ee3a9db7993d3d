package params

import (
	"sync"
	"time"
)

// cacheEntry represents a cached hyperparameter set with its expiry
type cacheEntry struct {
	set       setValue
	expiresAt time.Time
}

// setValue carries a decoded set alongside a presence flag so negative
// lookups (category absent in etcd) are cacheable too.
type setValue struct {
	data  []byte
	found bool
}

// setCache provides in-memory caching for etcd hyperparameter lookups.
// Forecast traffic resolves the same handful of categories over and over;
// a short TTL keeps etcd round-trips off the hot path while still picking
// up tuning updates quickly.
type setCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	stopCh  chan struct{}
}

// newSetCache creates a cache and starts its cleanup goroutine
func newSetCache(ttl time.Duration) *setCache {
	cache := &setCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// Get retrieves a cached value by category
func (c *setCache) Get(category string) (setValue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[category]
	if !exists {
		return setValue{}, false
	}

	if time.Now().After(entry.expiresAt) {
		return setValue{}, false
	}

	return entry.set, true
}

// Set stores a value under a category
func (c *setCache) Set(category string, value setValue) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[category] = &cacheEntry{
		set:       value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes a category from the cache
func (c *setCache) Delete(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, category)
}

// Clear removes all entries
func (c *setCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
}

// cleanup periodically removes expired entries
func (c *setCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for category, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, category)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (c *setCache) Stop() {
	close(c.stopCh)
}

// Stats returns cache statistics
func (c *setCache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expired := 0
	now := time.Now()
	for _, entry := range c.entries {
		if now.After(entry.expiresAt) {
			expired++
		}
	}

	return map[string]interface{}{
		"total_entries":   len(c.entries),
		"expired_entries": expired,
		"active_entries":  len(c.entries) - expired,
		"ttl_seconds":     c.ttl.Seconds(),
	}
}
