package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skypath/pkg/domain"
)

func TestRouteCache_SetGet(t *testing.T) {
	mem := NewMemoryCache(nil)
	defer mem.Close()
	rc := NewRouteCache(mem, time.Minute)
	ctx := context.Background()

	err := rc.Set(ctx, "fp", "A", "E", 2, &CachedRoute{
		Found:     true,
		Arrival:   14,
		FlightIDs: []string{"FN-101", "FN-103", "FN-107"},
	}, 0)
	require.NoError(t, err)

	got, ok, err := rc.Get(ctx, "fp", "A", "E", 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Found)
	assert.Equal(t, 14.0, got.Arrival)
	assert.Equal(t, []string{"FN-101", "FN-103", "FN-107"}, got.FlightIDs)
	assert.False(t, got.ComputedAt.IsZero())

	_, ok, err = rc.Get(ctx, "fp", "A", "E", 3)
	require.NoError(t, err)
	assert.False(t, ok, "different start time is a different key")
}

func TestRouteCache_NotFoundRoundTrip(t *testing.T) {
	mem := NewMemoryCache(nil)
	defer mem.Close()
	rc := NewRouteCache(mem, 0)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "fp", "A", "Z", 0, &CachedRoute{Found: false, Arrival: domain.Infinity}, 0))

	got, ok, err := rc.Get(ctx, "fp", "A", "Z", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Found)
	assert.True(t, domain.IsInfinite(got.Arrival))
	assert.Empty(t, got.FlightIDs)
}

func TestRouteCache_CorruptedEntry(t *testing.T) {
	mem := NewMemoryCache(nil)
	defer mem.Close()
	rc := NewRouteCache(mem, 0)
	ctx := context.Background()

	key := BuildRouteKey("fp", "A", "B", 0)
	require.NoError(t, mem.Set(ctx, key, []byte("{not json"), 0))

	_, ok, err := rc.Get(ctx, "fp", "A", "B", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = mem.Get(ctx, key)
	assert.ErrorIs(t, err, ErrKeyNotFound, "corrupted entry should be dropped")
}

func TestRouteCache_Invalidate(t *testing.T) {
	mem := NewMemoryCache(nil)
	defer mem.Close()
	rc := NewRouteCache(mem, 0)
	ctx := context.Background()

	route := &CachedRoute{Found: true, Arrival: 6, FlightIDs: []string{"F1"}}
	require.NoError(t, rc.Set(ctx, "old", "A", "B", 0, route, 0))
	require.NoError(t, rc.Set(ctx, "old", "A", "C", 0, route, 0))
	require.NoError(t, rc.Set(ctx, "new", "A", "B", 0, route, 0))

	n, err := rc.Invalidate(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, ok, _ := rc.Get(ctx, "new", "A", "B", 0)
	assert.True(t, ok)

	n, err = rc.InvalidateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stats, err := rc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalKeys)
}
