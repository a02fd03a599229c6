package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock lets tests force expiry without sleeping.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(t *testing.T) (*Cache[int], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	return New[int]("test", newTestLogger(), WithClock[int](clock.Now)), clock
}

func TestCache_SetAndGet(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("k", 5, TTLShort, nil)

	v, found := c.Get("k")
	assert.True(t, found)
	assert.Equal(t, 5, v)
}

func TestCache_GetMissing(t *testing.T) {
	c, _ := newTestCache(t)

	_, found := c.Get("absent")
	assert.False(t, found)
}

func TestCache_ExpiryOnRead(t *testing.T) {
	c, clock := newTestCache(t)

	c.Set("k", 5, time.Second, nil)

	v, found := c.Get("k")
	require.True(t, found)
	require.Equal(t, 5, v)

	clock.Advance(1100 * time.Millisecond)

	_, found = c.Get("k")
	assert.False(t, found)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCache_InvalidateByTag(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("k1", 1, TTLMedium, []string{"tenant:a"})
	c.Set("k2", 2, TTLMedium, []string{"tenant:a"})
	c.Set("k3", 3, TTLMedium, []string{"tenant:b"})

	removed := c.InvalidateByTag("tenant:a")
	assert.Equal(t, 2, removed)

	_, found := c.Get("k1")
	assert.False(t, found)
	_, found = c.Get("k2")
	assert.False(t, found)
	_, found = c.Get("k3")
	assert.True(t, found)
}

func TestCache_InvalidateUnknownTag(t *testing.T) {
	c, _ := newTestCache(t)

	assert.Equal(t, 0, c.InvalidateByTag("nothing"))
}

func TestCache_OverwriteDropsStaleTags(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("k", 1, TTLMedium, []string{"old"})
	c.Set("k", 2, TTLMedium, []string{"new"})

	assert.Equal(t, 0, c.InvalidateByTag("old"))
	assert.Equal(t, 1, c.InvalidateByTag("new"))
}

func TestCache_GetOrSet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	v, hit, err := c.GetOrSet(ctx, "k", TTLMedium, nil, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	v, hit, err = c.GetOrSet(ctx, "k", TTLMedium, nil, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestCache_GetOrSet_ErrorNotCached(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	boom := errors.New("boom")
	_, _, err := c.GetOrSet(ctx, "k", TTLMedium, nil, func() (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	_, found := c.Get("k")
	assert.False(t, found)
}

func TestCache_GetOrSet_CancelledNotCached(t *testing.T) {
	c, _ := newTestCache(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.GetOrSet(ctx, "k", TTLMedium, nil, func() (int, error) {
		return 42, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	_, found := c.Get("k")
	assert.False(t, found)
}

func TestCache_SetPanicsOnNonPositiveTTL(t *testing.T) {
	c, _ := newTestCache(t)

	assert.Panics(t, func() {
		c.Set("k", 1, 0, nil)
	})
}

func TestCache_StatsSweepsExpired(t *testing.T) {
	c, clock := newTestCache(t)

	c.Set("short", 1, time.Second, []string{"t"})
	c.Set("long", 2, TTLHour, nil)

	clock.Advance(2 * time.Second)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, []string{"long"}, stats.Keys)
	assert.Empty(t, stats.Tags)
}
