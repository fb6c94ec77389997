package redis

import (
	"context"
	"testing"
	"time"

	"account-transfer-service/config"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Server().Addr().Port

	client, err := NewClient(context.Background(), config.RedisConfig{Host: host, Port: port}, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Server().Addr().Port
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewClient(ctx, config.RedisConfig{Host: host, Port: port}, zerolog.Nop())
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	mr, client := newTestClient(t)
	h := NewHealthCheck(client)

	h.now = func() time.Time { return time.Unix(1700000000, 0) }

	assert.Equal(t, "redis", h.Name())
	require.NoError(t, h.Ping(context.Background()))

	got, err := mr.Get("ats:health")
	require.NoError(t, err)
	assert.Equal(t, "1700000000", got)
	assert.Equal(t, 30*time.Second, mr.TTL("ats:health"))

	mr.Close()
	assert.Error(t, h.Ping(context.Background()))
}

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "withdraw:3f1c"
	value := []byte(`{"status":200,"body":"{}"}`)

	result, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, time.Hour))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
	assert.True(t, mr.Exists("ats:idem:resp:"+key))

	mr.FastForward(time.Hour + time.Second)
	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, result, "entry must expire with its ttl")
}

func TestIdempotencyCache_ReserveRelease(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	ok, err := cache.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation must fail while the first is held")

	require.NoError(t, cache.Release(ctx, "k1"))
	ok, err = cache.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = cache.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "an abandoned reservation expires")
}

func TestIdempotencyCache_Errors(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	mr.Close()

	ctx := context.Background()
	_, err := cache.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, "k", []byte("v"), time.Minute))
	_, err = cache.Reserve(ctx, "k", time.Minute)
	assert.Error(t, err)
}

func TestRateLimitStore_Allow(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewRateLimitStore(client)
	store.now = func() time.Time { return time.Unix(1_700_000_010, 0) }
	ctx := context.Background()

	t.Run("allows requests within limit", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			result, err := store.Allow(ctx, "10.0.0.1", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "request %d should be allowed", i)
			assert.Equal(t, int64(3), result.Limit)
			assert.Equal(t, 3-i, result.Remaining)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		result, err := store.Allow(ctx, "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, int64(0), result.Remaining)
	})

	t.Run("different keys are independent", func(t *testing.T) {
		result, err := store.Allow(ctx, "10.0.0.2", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(4), result.Remaining)
	})

	t.Run("reset at window boundary", func(t *testing.T) {
		result, err := store.Allow(ctx, "10.0.0.3", 10, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1_700_000_040), result.ResetAt)
	})

	t.Run("counter carries a ttl", func(t *testing.T) {
		keys := mr.Keys()
		require.NotEmpty(t, keys)
		for _, k := range keys {
			assert.Greater(t, mr.TTL(k), time.Duration(0), "key %s has no ttl", k)
		}
	})

	t.Run("next window starts fresh", func(t *testing.T) {
		store.now = func() time.Time { return time.Unix(1_700_000_100, 0) }
		result, err := store.Allow(ctx, "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})
}

func TestRateLimitStore_RejectsSubSecondWindow(t *testing.T) {
	_, client := newTestClient(t)
	_, err := NewRateLimitStore(client).Allow(context.Background(), "k", 1, time.Millisecond)
	assert.Error(t, err)
}
