package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteCache {
	t.Helper()
	cache, err := NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	require.NoError(t, cache.Migrate(context.Background()))
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestSQLiteCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := newTestSQLite(t)

	require.NoError(t, cache.Set(ctx, KindExtraction, "offer:half bag", []byte(`{"parsed":{}}`), time.Hour))

	got, err := cache.Get(ctx, KindExtraction, "offer:half bag")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"parsed":{}}`), got)
}

func TestSQLiteCacheMiss(t *testing.T) {
	ctx := context.Background()
	cache := newTestSQLite(t)

	got, err := cache.Get(ctx, KindExtraction, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteCacheKindsAreIsolated(t *testing.T) {
	ctx := context.Background()
	cache := newTestSQLite(t)

	require.NoError(t, cache.Set(ctx, KindExtraction, "k", []byte("extraction"), time.Hour))
	require.NoError(t, cache.Set(ctx, KindPetData, "k", []byte("petdata"), time.Hour))

	got, err := cache.Get(ctx, KindPetData, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("petdata"), got)
}

func TestSQLiteCacheOverwrite(t *testing.T) {
	ctx := context.Background()
	cache := newTestSQLite(t)

	require.NoError(t, cache.Set(ctx, KindPetData, "shelters", []byte("v1"), time.Hour))
	require.NoError(t, cache.Set(ctx, KindPetData, "shelters", []byte("v2"), time.Hour))

	got, err := cache.Get(ctx, KindPetData, "shelters")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestSQLiteCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache := newTestSQLite(t)

	require.NoError(t, cache.Set(ctx, KindExtraction, "stale", []byte("old"), -time.Minute))

	got, err := cache.Get(ctx, KindExtraction, "stale")
	require.NoError(t, err)
	assert.Nil(t, got, "expired entries must not be returned")

	n, err := cache.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
