package internal

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock shared by a test and the cache under test
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sampleInsight(narrative string) InsightResult {
	return InsightResult{
		Timeframe:   TimeframeMonth,
		DateRange:   JSONDateRange{Start: "2025-06-01", End: "2025-06-30"},
		Total:       decimal.RequireFromString("1234.5"),
		Count:       4,
		Narrative:   narrative,
		Suggestions: []string{"one", "two", "three"},
		Trend:       TrendSummary{Direction: TrendStable, Consistency: ConsistencyModerate},
		Source:      SourceFallback,
		GeneratedAt: narratorNow,
	}
}

func TestCacheKey(t *testing.T) {
	june := date("2025-06-01")
	assert.Equal(t, "insights:u1:month:2025-06-01:all", CacheKey("u1", TimeframeMonth, june, nil))
	assert.Equal(t, "insights:u1:week:2025-06-01:1,3", CacheKey("u1", TimeframeWeek, june, []CategoryID{3, 1, 3}))
	assert.Equal(t, CacheKey("u1", TimeframeYear, june, []CategoryID{2, 1}), CacheKey("u1", TimeframeYear, june, []CategoryID{1, 2}))
	assert.NotEqual(t, CacheKey("u1", TimeframeMonth, june, nil), CacheKey("u2", TimeframeMonth, june, nil))
	assert.NotEqual(t, CacheKey("u1", TimeframeMonth, june, nil), CacheKey("u1", TimeframeMonth, date("2025-01-01"), nil))
}

func TestMemoryCache_TTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(narratorNow)
	cache := NewMemoryCache(10, clock.Now)

	require.NoError(t, cache.Put(ctx, "k", sampleInsight("hello"), 30*time.Minute))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", got.Narrative)

	clock.Advance(29 * time.Minute)
	_, ok, _ = cache.Get(ctx, "k")
	assert.True(t, ok, "still fresh before the TTL")

	clock.Advance(time.Minute)
	_, ok, _ = cache.Get(ctx, "k")
	assert.False(t, ok, "expired exactly at the TTL")
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10, fixedClock(narratorNow))

	value := sampleInsight("hello")
	require.NoError(t, cache.Put(ctx, "k", value, time.Minute))
	value.Suggestions[0] = "changed by caller"

	got, _, _ := cache.Get(ctx, "k")
	assert.Equal(t, "one", got.Suggestions[0])

	got.Suggestions[1] = "changed by reader"
	again, _, _ := cache.Get(ctx, "k")
	assert.Equal(t, "two", again.Suggestions[1])
}

func TestMemoryCache_Eviction(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(narratorNow)
	cache := NewMemoryCache(2, clock.Now)

	require.NoError(t, cache.Put(ctx, "a", sampleInsight("a"), time.Hour))
	clock.Advance(time.Second)
	require.NoError(t, cache.Put(ctx, "b", sampleInsight("b"), time.Hour))
	clock.Advance(time.Second)
	require.NoError(t, cache.Put(ctx, "c", sampleInsight("c"), time.Hour))

	assert.Equal(t, 2, cache.Len())
	_, ok, _ := cache.Get(ctx, "a")
	assert.False(t, ok, "oldest entry is evicted")
	_, ok, _ = cache.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryCache_EvictionKeepsNewestAtSameInstant(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(1, fixedClock(narratorNow))

	require.NoError(t, cache.Put(ctx, "a", sampleInsight("a"), time.Hour))
	require.NoError(t, cache.Put(ctx, "b", sampleInsight("b"), time.Hour))

	_, ok, _ := cache.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(50, SystemClock)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			_ = cache.Put(ctx, key, sampleInsight(key), time.Minute)
			_, _, _ = cache.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, cache.Len())
}

func TestSQLiteCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(narratorNow)
	cache, err := OpenSQLiteCache(":memory:", 10, clock.Now)
	require.NoError(t, err)
	defer cache.Close()

	want := sampleInsight("stored")
	require.NoError(t, cache.Put(ctx, "k", want, 30*time.Minute))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Narrative, got.Narrative)
	assert.Equal(t, want.Suggestions, got.Suggestions)
	assert.Equal(t, want.Source, got.Source)
	assert.True(t, want.Total.Equal(got.Total))
	assert.True(t, want.GeneratedAt.Equal(got.GeneratedAt))

	_, ok, err = cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(30 * time.Minute)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "expired exactly at the TTL")
}

func TestSQLiteCache_Overwrite(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenSQLiteCache(":memory:", 10, fixedClock(narratorNow))
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Put(ctx, "k", sampleInsight("first"), time.Hour))
	require.NoError(t, cache.Put(ctx, "k", sampleInsight("second"), time.Hour))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", got.Narrative)
}

func TestSQLiteCache_Trim(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(narratorNow)
	cache, err := OpenSQLiteCache(":memory:", 2, clock.Now)
	require.NoError(t, err)
	defer cache.Close()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, cache.Put(ctx, key, sampleInsight(key), time.Hour))
		clock.Advance(time.Second)
	}

	_, ok, _ := cache.Get(ctx, "a")
	assert.False(t, ok, "oldest entry is trimmed")
	_, ok, _ = cache.Get(ctx, "b")
	assert.True(t, ok)
	_, ok, _ = cache.Get(ctx, "c")
	assert.True(t, ok)
}

func TestSQLiteCache_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	clock := fixedClock(narratorNow)

	first, err := OpenSQLiteCache(path, 10, clock)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "k", sampleInsight("persisted"), time.Hour))
	require.NoError(t, first.Close())

	second, err := OpenSQLiteCache(path, 10, clock)
	require.NoError(t, err)
	defer second.Close()

	got, ok, err := second.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "persisted", got.Narrative)
}
