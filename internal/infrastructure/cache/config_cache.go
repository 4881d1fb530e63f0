// Package cache provides a short-TTL in-memory snapshot of provider
// configuration, so the aggregator does not hit the datastore once per
// candidate.
package cache

import (
	"sync"
	"time"

	"github.com/nutrigate/backend/internal/domain"
)

// ConfigCache is a thread-safe, read-mostly snapshot of all provider
// configs. Mutation paths call Invalidate so a disabled provider or rotated
// key takes effect immediately; the TTL bounds staleness across instances
// that miss the invalidation.
type ConfigCache struct {
	mu        sync.RWMutex
	snapshot  []domain.ProviderConfig
	fetchedAt time.Time
	ttl       time.Duration
}

// NewConfigCache creates a config cache with the given TTL.
func NewConfigCache(ttl time.Duration) *ConfigCache {
	return &ConfigCache{ttl: ttl}
}

// Get returns the cached snapshot and true while it is fresh. The returned
// slice is a copy; callers may reorder it freely.
func (c *ConfigCache) Get(now time.Time) ([]domain.ProviderConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil || now.Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}

	out := make([]domain.ProviderConfig, len(c.snapshot))
	copy(out, c.snapshot)
	return out, true
}

// Set replaces the snapshot.
func (c *ConfigCache) Set(configs []domain.ProviderConfig, now time.Time) {
	snapshot := make([]domain.ProviderConfig, len(configs))
	copy(snapshot, configs)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snapshot
	c.fetchedAt = now
}

// Invalidate drops the snapshot so the next Get misses.
func (c *ConfigCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
}
