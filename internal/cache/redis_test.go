package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/refurnish/internal/cart"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client), mr
}

func testLines() []cart.Line {
	return []cart.Line{
		{ID: "prod-1", Name: "Narra dining table", UnitPrice: 4500, Quantity: 1},
		{ID: "prod-2", Name: "Rattan armchair", UnitPrice: 1200, Quantity: 2},
	}
}

func TestRedisCache_SetGet(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "user-1", testLines()))

	lines, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "prod-1", lines[0].ID)
	assert.Equal(t, int64(1200), lines[1].UnitPrice)
}

func TestRedisCache_GetMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	_, err := cache.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, cart.ErrCacheMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "user-1", testLines()))
	require.NoError(t, cache.Delete(ctx, "user-1"))

	_, err := cache.Get(ctx, "user-1")
	assert.ErrorIs(t, err, cart.ErrCacheMiss)
}

func TestRedisCache_SnapshotHasTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "user-1", testLines()))

	ttl := mr.TTL("cart:user-1")
	assert.Greater(t, ttl.Minutes(), 14.0)
}

// ============================================
// Selection store
// ============================================

func TestRedisCache_Selection(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.SetSelected(ctx, "user-1", "prod-1", true))
	require.NoError(t, cache.SetSelected(ctx, "user-1", "prod-2", true))
	require.NoError(t, cache.SetSelected(ctx, "user-1", "prod-2", false))

	selected, err := cache.Selected(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, selected["prod-1"])
	assert.False(t, selected["prod-2"])
}

func TestRedisCache_SelectionClear(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.SetSelected(ctx, "user-1", "prod-1", true))
	require.NoError(t, cache.SetSelected(ctx, "user-1", "prod-2", true))
	require.NoError(t, cache.SetSelected(ctx, "user-1", "prod-3", true))

	require.NoError(t, cache.Clear(ctx, "user-1", "prod-1", "prod-2"))

	selected, err := cache.Selected(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"prod-3": true}, selected)
}

func TestRedisCache_ClearNothing(t *testing.T) {
	cache, _ := setupTestRedis(t)

	assert.NoError(t, cache.Clear(context.Background(), "user-1"))
}
