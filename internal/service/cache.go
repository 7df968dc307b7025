package service

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/city-weather-service/internal/domain"
	"github.com/couchcryptid/city-weather-service/internal/observability"
)

// StatsProvider computes stats for a city and window.
type StatsProvider interface {
	Stats(ctx context.Context, cityID, windowDays int) (domain.Stats, error)
}

// CachedStats wraps a StatsProvider with a short-TTL in-memory cache.
// Stats are derived data, so serving a slightly stale result is safe; the
// cache only absorbs bursts of dashboard reads between ingestion runs.
type CachedStats struct {
	inner   StatsProvider
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

type cacheKey struct {
	cityID     int
	windowDays int
}

type cacheEntry struct {
	stats     domain.Stats
	expiresAt time.Time
}

// NewCachedStats creates a cache decorator around a stats provider. Pass a
// nil clock for real time; tests inject a fake to step past expiry.
func NewCachedStats(inner StatsProvider, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedStats {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedStats{
		inner:   inner,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// Stats returns the cached result when fresh, otherwise recomputes.
// Errors are never cached, so transient store failures retry immediately.
func (c *CachedStats) Stats(ctx context.Context, cityID, windowDays int) (domain.Stats, error) {
	key := cacheKey{cityID: cityID, windowDays: ClampWindow(windowDays)}

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if ok && c.clock.Now().Before(entry.expiresAt) {
		c.metrics.StatsCache.WithLabelValues("hit").Inc()
		return entry.stats, nil
	}
	c.metrics.StatsCache.WithLabelValues("miss").Inc()

	stats, err := c.inner.Stats(ctx, cityID, windowDays)
	if err != nil {
		return domain.Stats{}, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{stats: stats, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()

	return stats, nil
}
