package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	_ "github.com/meridian-erp/meridian-erp/testing"
)

type cachedPayload struct {
	Value string `json:"value"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute, nil), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	tenant := uuid.New()

	var missed cachedPayload
	require.False(t, cache.Get(ctx, tenant, "tb:2025-01-01:2025-01-31", &missed))

	cache.Set(ctx, tenant, "tb:2025-01-01:2025-01-31", cachedPayload{Value: "report"})

	var hit cachedPayload
	require.True(t, cache.Get(ctx, tenant, "tb:2025-01-01:2025-01-31", &hit))
	require.Equal(t, "report", hit.Value)
}

func TestCacheIsolatesTenants(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	alpha := uuid.New()
	beta := uuid.New()

	cache.Set(ctx, alpha, "tb", cachedPayload{Value: "alpha"})

	var out cachedPayload
	require.False(t, cache.Get(ctx, beta, "tb", &out))
}

func TestCacheInvalidateBumpsVersion(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	tenant := uuid.New()

	cache.Set(ctx, tenant, "tb", cachedPayload{Value: "stale"})
	cache.Invalidate(ctx, tenant)

	var out cachedPayload
	require.False(t, cache.Get(ctx, tenant, "tb", &out), "entries written before invalidation must miss")

	cache.Set(ctx, tenant, "tb", cachedPayload{Value: "fresh"})
	require.True(t, cache.Get(ctx, tenant, "tb", &out))
	require.Equal(t, "fresh", out.Value)
}

func TestCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	tenant := uuid.New()

	cache.Set(ctx, tenant, "tb", cachedPayload{Value: "report"})
	mr.FastForward(2 * time.Minute)

	var out cachedPayload
	require.False(t, cache.Get(ctx, tenant, "tb", &out))
}

func TestCacheNilClientIsNoop(t *testing.T) {
	cache := NewCache(nil, time.Minute, nil)
	ctx := context.Background()
	tenant := uuid.New()

	cache.Set(ctx, tenant, "tb", cachedPayload{Value: "report"})
	cache.Invalidate(ctx, tenant)

	var out cachedPayload
	require.False(t, cache.Get(ctx, tenant, "tb", &out))
}

func TestCacheNilReceiverIsNoop(t *testing.T) {
	var cache *Cache
	ctx := context.Background()
	tenant := uuid.New()

	cache.Set(ctx, tenant, "tb", cachedPayload{Value: "report"})
	cache.Invalidate(ctx, tenant)

	var out cachedPayload
	require.False(t, cache.Get(ctx, tenant, "tb", &out))
}
