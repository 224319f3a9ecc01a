package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/pathways/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetSetDelete(t *testing.T) {
	cache, backend, err := NewMemoryCache()
	require.NoError(t, err)
	defer backend.Close()
	defer cache.Close()
	ctx := context.Background()

	_, err = cache.Get(ctx, "fp-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, cache.Set(ctx, "fp-1", []byte(`{"score":9}`), time.Hour))

	value, err := cache.Get(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"score":9}`), value)

	require.NoError(t, cache.Set(ctx, "fp-1", []byte(`{"score":3}`), 0))
	value, err = cache.Get(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"score":3}`), value, "set overwrites")

	require.NoError(t, cache.Delete(ctx, "fp-1"))
	_, err = cache.Get(ctx, "fp-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCache_Expiry(t *testing.T) {
	cache, backend, err := NewMemoryCache()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	// Badger TTLs have one second resolution.
	require.NoError(t, cache.Set(ctx, "short", []byte("v"), time.Second))
	time.Sleep(2100 * time.Millisecond)

	_, err = cache.Get(ctx, "short")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCache_ClosedBackend(t *testing.T) {
	cache, backend, err := NewMemoryCache()
	require.NoError(t, err)
	require.NoError(t, backend.Close())
	ctx := context.Background()

	_, err = cache.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, cache.Set(ctx, "k", []byte("v"), 0), storage.ErrStorageClosed)
}

func TestNewCache_NilBackend(t *testing.T) {
	_, err := NewCache(nil)
	assert.Error(t, err)
}
