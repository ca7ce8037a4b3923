// Package storagetest holds the behavioural suite every CacheStore adapter must pass.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janwilmake/flaredream.dash/internal/domain"
	"github.com/janwilmake/flaredream.dash/internal/storage"
)

// Clock is a manually advanced clock
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock fixed at start
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Factory builds a fresh, empty store driven by the given clock
type Factory func(t *testing.T, clock *Clock) storage.CacheStore

// Run exercises the CacheStore contract against stores built by newStore
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("missing key is absent, not an error", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		_, found, err := s.Get(ctx, domain.CacheKey{Username: "nobody", Tier: domain.TierPublic, Format: domain.FormatMarkup})
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("put then get", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		key := domain.CacheKey{Username: "alice", Tier: domain.TierPublic, Format: domain.FormatMarkup}
		require.NoError(t, s.Put(ctx, key, "<html>alice</html>", time.Hour))

		got, found, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "<html>alice</html>", got)
	})

	t.Run("tiers never alias", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		public := domain.CacheKey{Username: "carol", Tier: domain.TierPublic, Format: domain.FormatMarkup}
		require.NoError(t, s.Put(ctx, public, "public content", time.Hour))

		_, found, err := s.Get(ctx, domain.CacheKey{Username: "carol", Tier: domain.TierPrivate, Format: domain.FormatMarkup})
		require.NoError(t, err)
		assert.False(t, found)

		_, found, err = s.Get(ctx, domain.CacheKey{Username: "carol", Tier: domain.TierPublic, Format: domain.FormatPlaintext})
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("username is case-insensitive", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		require.NoError(t, s.Put(ctx, domain.CacheKey{Username: "Dave", Tier: domain.TierPublic, Format: domain.FormatMarkup}, "x", time.Hour))

		got, found, err := s.Get(ctx, domain.CacheKey{Username: "dave", Tier: domain.TierPublic, Format: domain.FormatMarkup})
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "x", got)
	})

	t.Run("expired entries read as absent", func(t *testing.T) {
		clock := NewClock(start)
		s := newStore(t, clock)
		key := domain.CacheKey{Username: "erin", Tier: domain.TierPublic, Format: domain.FormatPlaintext}
		require.NoError(t, s.Put(ctx, key, "soon stale", time.Minute))

		clock.Advance(59 * time.Second)
		_, found, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, found)

		clock.Advance(time.Second)
		_, found, err = s.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("put all overwrites every entry", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		keys := domain.KeysFor("frank", domain.TierPublic)
		require.NoError(t, s.PutAll(ctx, []domain.CacheEntry{
			{Key: keys[0], Payload: "m1"},
			{Key: keys[1], Payload: "p1"},
		}, time.Hour))
		require.NoError(t, s.PutAll(ctx, []domain.CacheEntry{
			{Key: keys[0], Payload: "m2"},
			{Key: keys[1], Payload: "p2"},
		}, time.Hour))

		for i, want := range []string{"m2", "p2"} {
			got, found, err := s.Get(ctx, keys[i])
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, want, got)
		}
	})

	t.Run("failed put all keeps the previous pair", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		keys := domain.KeysFor("grace", domain.TierPublic)
		require.NoError(t, s.PutAll(ctx, []domain.CacheEntry{
			{Key: keys[0], Payload: "m1"},
			{Key: keys[1], Payload: "p1"},
		}, time.Hour))

		bad := domain.CacheKey{Username: "grace", Tier: domain.TierPublic, Format: domain.Format("pdf")}
		err := s.PutAll(ctx, []domain.CacheEntry{
			{Key: keys[0], Payload: "m2"},
			{Key: keys[1], Payload: "p2"},
			{Key: bad, Payload: "x"},
		}, time.Hour)
		require.Error(t, err)

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		err = s.PutAll(canceled, []domain.CacheEntry{
			{Key: keys[0], Payload: "m3"},
			{Key: keys[1], Payload: "p3"},
		}, time.Hour)
		require.Error(t, err)

		for i, want := range []string{"m1", "p1"} {
			got, found, err := s.Get(ctx, keys[i])
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, want, got)
		}
	})
}
