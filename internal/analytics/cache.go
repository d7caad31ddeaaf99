package analytics

import (
	"sync"
	"time"
)

type cacheEntry struct {
	stats       []CommandStats
	lastRefresh time.Time
}

// statsCache holds per-profile statistics for a short time-to-live
type statsCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry // key: profile name
	ttl     time.Duration
}

func newStatsCache(ttl time.Duration) *statsCache {
	return &statsCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

func (c *statsCache) get(profile string) ([]CommandStats, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[profile]
	if !ok || time.Since(entry.lastRefresh) > c.ttl {
		return nil, false
	}
	return entry.stats, true
}

func (c *statsCache) set(profile string, stats []CommandStats) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[profile] = &cacheEntry{stats: stats, lastRefresh: time.Now()}
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
}
