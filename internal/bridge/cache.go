package bridge

import (
	"context"
	"sync"
	"time"
)

// StatsCache stores statistics per filter key. Implementations must be
// safe for concurrent use and treat backend failures as misses.
//
// Get reports the generation it observed. Set with that generation is
// dropped when an Invalidate happened in between, so a read that raced an
// insert never repopulates the cache.
type StatsCache interface {
	Get(ctx context.Context, key string) (st Statistics, gen int64, ok bool)
	Set(ctx context.Context, key string, gen int64, st Statistics)
	Invalidate(ctx context.Context)
}

// noGeneration marks a lookup that could not observe the generation.
const noGeneration int64 = -1

type noopCache struct{}

func (noopCache) Get(context.Context, string) (Statistics, int64, bool) {
	return Statistics{}, noGeneration, false
}
func (noopCache) Set(context.Context, string, int64, Statistics) {}
func (noopCache) Invalidate(context.Context) {}

// MemoryStatsCache is an in-process TTL cache.
type MemoryStatsCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	gen     int64
	entries map[string]memoryEntry
}

type memoryEntry struct {
	stats     Statistics
	expiresAt time.Time
}

// NewMemoryStatsCache returns a cache whose entries live for ttl, which
// must be positive.
func NewMemoryStatsCache(ttl time.Duration) *MemoryStatsCache {
	return &MemoryStatsCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryStatsCache) Get(_ context.Context, key string) (Statistics, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Statistics{}, c.gen, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return Statistics{}, c.gen, false
	}
	return e.stats, c.gen, true
}

func (c *MemoryStatsCache) Set(_ context.Context, key string, gen int64, st Statistics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.entries[key] = memoryEntry{stats: st, expiresAt: c.now().Add(c.ttl)}
}

func (c *MemoryStatsCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[string]memoryEntry)
}
