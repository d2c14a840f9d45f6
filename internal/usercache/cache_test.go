package usercache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glotok-bot/glotok/internal/domain"
	redisclient "github.com/glotok-bot/glotok/pkg/redis"
)

func setupTestCache(t *testing.T) *Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCache(&redisclient.Client{Client: client})
}

func TestCacheRoundTrip(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	profile := domain.DefaultProfile(42, "Europe/Moscow", time.Now().UTC())
	profile.DailyGoalML = 2500

	require.NoError(t, cache.Set(ctx, 42, profile, time.Minute))

	got, err := cache.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.TelegramID)
	assert.Equal(t, 2500, got.DailyGoalML)
	assert.Equal(t, "Europe/Moscow", got.Timezone)
}

func TestCacheMissReturnsNil(t *testing.T) {
	cache := setupTestCache(t)

	got, err := cache.Get(context.Background(), 99)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheInvalidate(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	profile := domain.DefaultProfile(7, "UTC", time.Now().UTC())
	require.NoError(t, cache.Set(ctx, 7, profile, time.Minute))
	require.NoError(t, cache.Invalidate(ctx, 7))

	got, err := cache.Get(ctx, 7)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestNilCacheIsSafe(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	got, err := cache.Get(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, cache.Set(ctx, 1, nil, time.Minute))
	assert.NoError(t, cache.Invalidate(ctx, 1))
}
