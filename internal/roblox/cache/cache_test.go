package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/robalyx/presencewatch/internal/roblox/cache"
	"github.com/robalyx/presencewatch/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
}

func newCache(clock *fakeClock, maxEntries int) *cache.Cache {
	return cache.New(cache.Options{
		MaxEntries: maxEntries,
		TTLs: map[cache.Kind]time.Duration{
			cache.KindProfile:  300 * time.Second,
			cache.KindAvatar:   300 * time.Second,
			cache.KindPresence: 10 * time.Second,
		},
		Clock: clock.Now,
	})
}

func TestCacheTTLPerKind(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newCache(clock, 100)

	c.Set(cache.KindPresence, 1, "in-game")
	c.Set(cache.KindProfile, 1, "builderman")

	clock.Advance(9 * time.Second)

	got, ok := cache.Lookup[string](c, cache.KindPresence, 1)
	require.True(t, ok)
	assert.Equal(t, "in-game", got)

	// At exactly the TTL the entry is stale and gets evicted.
	clock.Advance(time.Second)

	_, ok = c.Get(cache.KindPresence, 1)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	got, ok = cache.Lookup[string](c, cache.KindProfile, 1)
	require.True(t, ok)
	assert.Equal(t, "builderman", got)
}

func TestCacheEvictsOldestInsertion(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(0, 0)}
	c := newCache(clock, 3)

	c.Set(cache.KindProfile, 1, 1)
	c.Set(cache.KindProfile, 2, 2)
	c.Set(cache.KindProfile, 3, 3)

	// Reading does not protect an entry from eviction.
	_, ok := c.Get(cache.KindProfile, 1)
	require.True(t, ok)

	c.Set(cache.KindProfile, 4, 4)

	_, ok = c.Get(cache.KindProfile, 1)
	assert.False(t, ok)

	for _, id := range []uint64{2, 3, 4} {
		_, ok := c.Get(cache.KindProfile, id)
		assert.True(t, ok, "id %d", id)
	}

	// Re-setting counts as a fresh insertion.
	c.Set(cache.KindProfile, 2, 22)
	c.Set(cache.KindProfile, 5, 5)

	_, ok = c.Get(cache.KindProfile, 3)
	assert.False(t, ok)

	got, ok := cache.Lookup[int](c, cache.KindProfile, 2)
	require.True(t, ok)
	assert.Equal(t, 22, got)
}

func TestCacheClear(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(0, 0)}
	c := newCache(clock, 100)

	for id := range uint64(5) {
		c.Set(cache.KindPresence, id, id)
		c.Set(cache.KindAvatar, id, id)
	}

	c.Delete(cache.KindAvatar, 0)
	_, ok := c.Get(cache.KindAvatar, 0)
	assert.False(t, ok)

	c.Clear(cache.KindPresence)
	assert.Equal(t, 4, c.Len())

	_, ok = c.Get(cache.KindAvatar, 1)
	assert.True(t, ok)

	c.ClearAll()
	assert.Equal(t, 0, c.Len())
}

func TestLookupWrongType(t *testing.T) {
	t.Parallel()

	c := newCache(&fakeClock{now: time.Unix(0, 0)}, 10)
	c.Set(cache.KindAvatar, 1, "url")

	_, ok := cache.Lookup[int](c, cache.KindAvatar, 1)
	assert.False(t, ok)
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()

	opts := cache.OptionsFromConfig(&config.Cache{
		MaxEntries:  50,
		ProfileTTL:  300,
		AvatarTTL:   120,
		PresenceTTL: 10,
	})

	assert.Equal(t, 50, opts.MaxEntries)
	assert.Equal(t, 5*time.Minute, opts.TTLs[cache.KindProfile])
	assert.Equal(t, 2*time.Minute, opts.TTLs[cache.KindAvatar])
	assert.Equal(t, 10*time.Second, opts.TTLs[cache.KindPresence])
	assert.Nil(t, opts.Clock)
}
