package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TTL tiers callers pick per data volatility. Search results use TTLMedium;
// counts use TTLShort.
const (
	TTLShort  = 60 * time.Second
	TTLMedium = 5 * time.Minute
	TTLLong   = 30 * time.Minute
	TTLHour   = time.Hour
	TTLDay    = 24 * time.Hour
)

// DefaultSweepInterval is how often the background sweep evicts expired entries.
const DefaultSweepInterval = 5 * time.Minute

var (
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	cacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache entries evicted by expiry or invalidation",
		},
		[]string{"cache"},
	)

	cacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of live cache entries",
		},
		[]string{"cache"},
	)
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
	tags      []string
}

// Cache is an in-memory key/value store with per-entry TTL and tag-based
// bulk invalidation. Expiry is checked lazily on read and by a periodic
// sweep. It is safe for concurrent use; reads take a shared lock.
//
// The cache is per process. In a multi-instance deployment instances can
// diverge until tenant invalidation events reach each of them.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	// tags is the tag -> keys reverse index used for bulk invalidation.
	tags map[string]map[string]struct{}

	name   string
	logger *slog.Logger
	now    func() time.Time
}

// Stats describes the cache contents after an expiry sweep.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
	Tags []string `json:"tags"`
}

// CacheOption configures a Cache.
type CacheOption[V any] func(*Cache[V])

// WithClock overrides the time source. Tests use this to force expiry
// without sleeping.
func WithClock[V any](now func() time.Time) CacheOption[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

// New creates a named cache. The name labels the Prometheus hit/miss series.
func New[V any](name string, logger *slog.Logger, opts ...CacheOption[V]) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]entry[V]),
		tags:    make(map[string]map[string]struct{}),
		name:    name,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key. It returns found=false if the key is
// absent or expired; an expired entry is deleted on the spot.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		cacheMisses.WithLabelValues(c.name).Inc()
		return zero, false
	}

	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// replaced the entry since the read.
		if cur, ok := c.entries[key]; ok && !c.now().Before(cur.expiresAt) {
			c.deleteLocked(key)
			cacheEvictions.WithLabelValues(c.name).Inc()
		}
		c.mu.Unlock()
		cacheMisses.WithLabelValues(c.name).Inc()
		return zero, false
	}

	cacheHits.WithLabelValues(c.name).Inc()
	return e.value, true
}

// Set stores value under key with the given TTL, indexing it under each tag.
// A non-positive TTL is a caller bug and panics.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration, tags []string) {
	if ttl <= 0 {
		panic(fmt.Sprintf("cache %q: non-positive TTL %v for key %q", c.name, ttl, key))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Overwriting must drop stale tag index references first.
	if _, exists := c.entries[key]; exists {
		c.removeFromTagsLocked(key)
	}

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
		tags:      tags,
	}
	for _, tag := range tags {
		keys, ok := c.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}

	cacheEntries.WithLabelValues(c.name).Set(float64(len(c.entries)))
}

// Delete removes the entry and prunes it from every tag's key set.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(key)
}

// InvalidateByTag deletes every key currently indexed under tag and returns
// the count removed. The tag entry itself is cleared.
func (c *Cache[V]) InvalidateByTag(tag string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, ok := c.tags[tag]
	if !ok {
		return 0
	}

	count := 0
	for key := range keys {
		if _, exists := c.entries[key]; exists {
			c.deleteLocked(key)
			count++
		}
	}
	delete(c.tags, tag)

	cacheEvictions.WithLabelValues(c.name).Add(float64(count))
	return count
}

// GetOrSet returns the cached value on a hit. On a miss it calls compute
// exactly once, stores the result, and returns it with hit=false. Nothing is
// stored when compute fails or the context is already cancelled, so a failed
// computation can never poison the cache.
//
// Concurrent misses for the same key may each run compute; that is a
// redundancy cost, not a correctness issue.
func (c *Cache[V]) GetOrSet(ctx context.Context, key string, ttl time.Duration, tags []string, compute func() (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	var zero V
	v, err := compute()
	if err != nil {
		return zero, false, err
	}
	if ctx.Err() != nil {
		return zero, false, ctx.Err()
	}

	c.Set(key, v, ttl, tags)
	return v, false, nil
}

// Stats sweeps expired entries and returns the cache contents.
func (c *Cache[V]) Stats() Stats {
	c.sweepExpired()

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		Size: len(c.entries),
		Keys: make([]string, 0, len(c.entries)),
		Tags: make([]string, 0, len(c.tags)),
	}
	for key := range c.entries {
		stats.Keys = append(stats.Keys, key)
	}
	for tag := range c.tags {
		stats.Tags = append(stats.Tags, tag)
	}
	return stats
}

// StartSweep runs the periodic expiry sweep until the context is cancelled.
// Run it in its own goroutine.
func (c *Cache[V]) StartSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := c.sweepExpired()
			if evicted > 0 {
				c.logger.Debug("cache sweep evicted expired entries",
					slog.String("cache", c.name),
					slog.Int("evicted", evicted),
				)
			}
		}
	}
}

// sweepExpired scans for expired keys under a read lock, then deletes them
// in a short write-lock pass so a large scan never blocks writers.
func (c *Cache[V]) sweepExpired() int {
	now := c.now()

	c.mu.RLock()
	expired := make([]string, 0)
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			expired = append(expired, key)
		}
	}
	c.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}

	evicted := 0
	c.mu.Lock()
	for _, key := range expired {
		if e, ok := c.entries[key]; ok && !now.Before(e.expiresAt) {
			c.deleteLocked(key)
			evicted++
		}
	}
	c.mu.Unlock()

	cacheEvictions.WithLabelValues(c.name).Add(float64(evicted))
	return evicted
}

// deleteLocked removes key and its tag index references. Caller holds the
// write lock.
func (c *Cache[V]) deleteLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	c.removeFromTagsLocked(key)
	delete(c.entries, key)
	cacheEntries.WithLabelValues(c.name).Set(float64(len(c.entries)))
}

func (c *Cache[V]) removeFromTagsLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	for _, tag := range e.tags {
		if keys, ok := c.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tags, tag)
			}
		}
	}
}
