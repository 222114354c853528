package internal

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultInsightTTL is how long a narrated insight stays fresh.
	DefaultInsightTTL = 30 * time.Minute
	// DefaultCacheEntries caps the number of cached insights.
	DefaultCacheEntries = 1000
)

// InsightCache stores narrated insights by key. Implementations must be safe for
// concurrent use; concurrent puts of the same key are last-write-wins.
type InsightCache interface {
	Get(ctx context.Context, key string) (InsightResult, bool, error)
	Put(ctx context.Context, key string, value InsightResult, ttl time.Duration) error
}

// CacheKey derives the cache key for a user, timeframe window and category filter.
// windowStart pins the key to one calendar period. The filter is order-insensitive.
func CacheKey(userID string, tf Timeframe, windowStart time.Time, filter []CategoryID) string {
	ids := make([]CategoryID, len(filter))
	copy(ids, filter)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	parts := make([]string, 0, len(ids))
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		parts = append(parts, strconv.FormatInt(int64(id), 10))
	}
	scope := "all"
	if len(parts) > 0 {
		scope = strings.Join(parts, ",")
	}
	return "insights:" + userID + ":" + string(tf) + ":" + windowStart.Format(dateLayout) + ":" + scope
}

type CacheEntry struct {
	Key       string
	Value     InsightResult
	CreatedAt time.Time
	TTL       time.Duration
}

// Expired reports whether the entry is stale at now. An entry expires exactly at CreatedAt+TTL.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.CreatedAt.Add(e.TTL))
}

// cloneInsight copies the slice so cached values cannot be changed through a returned result.
func cloneInsight(v InsightResult) InsightResult {
	if v.Suggestions != nil {
		v.Suggestions = append([]string(nil), v.Suggestions...)
	}
	return v
}

// MemoryCache is an in-process InsightCache with TTL expiry and an entry cap.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]CacheEntry
	clock      Clock
	maxEntries int
}

func NewMemoryCache(maxEntries int, clock Clock) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	if clock == nil {
		clock = SystemClock
	}
	return &MemoryCache{
		entries:    make(map[string]CacheEntry),
		clock:      clock,
		maxEntries: maxEntries,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (InsightResult, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.Expired(c.clock()) {
		return InsightResult{}, false, nil
	}
	return cloneInsight(e.Value), true, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, value InsightResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultInsightTTL
	}
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = CacheEntry{Key: key, Value: cloneInsight(value), CreatedAt: now, TTL: ttl}
	if len(c.entries) > c.maxEntries {
		c.evict(now, key)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evict drops expired entries, then the oldest ones until the cap holds.
// The entry under keep is never evicted. Caller holds mu.
func (c *MemoryCache) evict(now time.Time, keep string) {
	for k, e := range c.entries {
		if e.Expired(now) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) <= c.maxEntries {
		return
	}

	byAge := make([]CacheEntry, 0, len(c.entries))
	for k, e := range c.entries {
		if k != keep {
			byAge = append(byAge, e)
		}
	}
	sort.Slice(byAge, func(i, j int) bool {
		if !byAge[i].CreatedAt.Equal(byAge[j].CreatedAt) {
			return byAge[i].CreatedAt.Before(byAge[j].CreatedAt)
		}
		return byAge[i].Key < byAge[j].Key
	})
	for _, e := range byAge[:len(c.entries)-c.maxEntries] {
		delete(c.entries, e.Key)
	}
}
