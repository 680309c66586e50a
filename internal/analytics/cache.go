package analytics

import (
	"context"
	"sync"
	"time"

	"defectinsight/internal/models"
)

// DefaultSnapshotTTL bounds how long a corpus snapshot is served before recomputation
const DefaultSnapshotTTL = 300 * time.Second

// ComputeFunc produces a fresh corpus snapshot
type ComputeFunc func(ctx context.Context) (*models.AnalyticsSnapshot, error)

// CacheObserver receives cache outcomes
type CacheObserver interface {
	CacheHit()
	CacheMiss()
	ObserveCompute(seconds float64)
}

// SnapshotCache holds at most one corpus snapshot for every caller.
// Concurrent misses may each recompute; the last finished write wins.
type SnapshotCache struct {
	compute  ComputeFunc
	ttl      time.Duration
	now      func() time.Time
	observer CacheObserver

	mu         sync.RWMutex
	snapshot   *models.AnalyticsSnapshot
	computedAt time.Time
	generation uint64 // bumped by Invalidate
}

// CacheOption customizes a SnapshotCache
type CacheOption func(*SnapshotCache)

// WithCacheClock overrides the clock used for the TTL check
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *SnapshotCache) { c.now = now }
}

// WithCacheObserver reports hits, misses and compute latency to o
func WithCacheObserver(o CacheObserver) CacheOption {
	return func(c *SnapshotCache) { c.observer = o }
}

// NewSnapshotCache creates an empty cache around compute. A non-positive ttl selects DefaultSnapshotTTL.
func NewSnapshotCache(compute ComputeFunc, ttl time.Duration, opts ...CacheOption) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	c := &SnapshotCache{
		compute: compute,
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached snapshot while it is younger than the TTL, otherwise
// recomputes and stores it. A failed recomputation leaves the slot untouched.
func (c *SnapshotCache) Get(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	now := c.now()

	c.mu.RLock()
	snapshot, computedAt, gen := c.snapshot, c.computedAt, c.generation
	c.mu.RUnlock()

	if snapshot != nil && now.Sub(computedAt) < c.ttl {
		if c.observer != nil {
			c.observer.CacheHit()
		}
		return snapshot, nil
	}
	if c.observer != nil {
		c.observer.CacheMiss()
	}

	fresh, err := c.compute(ctx)
	if err != nil {
		return nil, err
	}
	if c.observer != nil {
		c.observer.ObserveCompute(c.now().Sub(now).Seconds())
	}

	// A snapshot computed across an Invalidate may predate the change; hand it
	// to this caller but do not keep it.
	c.mu.Lock()
	if c.generation == gen {
		c.snapshot = fresh
		c.computedAt = now
	}
	c.mu.Unlock()

	return fresh, nil
}

// Invalidate empties the slot so the next Get recomputes
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.computedAt = time.Time{}
	c.generation++
	c.mu.Unlock()
}

// Age reports how old the cached snapshot is, false when the slot is empty
func (c *SnapshotCache) Age() (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return 0, false
	}
	return c.now().Sub(c.computedAt), true
}
