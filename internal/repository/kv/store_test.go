package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhanzaki/apotekgo/internal/domain"
)

func TestMemoryStore_ReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Read(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, store.Write(ctx, "k1", []byte("v1")))
	blob, err := store.Read(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), blob)

	// Overwrite replaces the value.
	require.NoError(t, store.Write(ctx, "k1", []byte("v2")))
	blob, err = store.Read(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), blob)

	require.NoError(t, store.Delete(ctx, "k1"))
	_, err = store.Read(ctx, "k1")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestMemoryStore_ReadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Write(ctx, "k1", []byte("abc")))

	blob, err := store.Read(ctx, "k1")
	require.NoError(t, err)
	blob[0] = 'X'

	again, err := store.Read(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again, "caller mutations must not leak into the store")
}

func TestMemoryStore_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Write(ctx, "cache/tenant-a/orders", []byte("1")))
	require.NoError(t, store.Write(ctx, "cache/tenant-a/prescriptions", []byte("2")))
	require.NoError(t, store.Write(ctx, "cache/tenant-b/orders", []byte("3")))
	require.NoError(t, store.Write(ctx, "sync/queue", []byte("4")))

	require.NoError(t, store.DeletePrefix(ctx, "cache/tenant-a/"))

	_, err := store.Read(ctx, "cache/tenant-a/orders")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	_, err = store.Read(ctx, "cache/tenant-a/prescriptions")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	for _, key := range []string{"cache/tenant-b/orders", "sync/queue"} {
		_, err := store.Read(ctx, key)
		assert.NoError(t, err, "key %s must survive", key)
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(t.TempDir() + "/kv.db")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Read(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, store.Write(ctx, "k1", []byte("v1")))
	require.NoError(t, store.Write(ctx, "k1", []byte("v2")))

	blob, err := store.Read(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), blob)

	require.NoError(t, store.Write(ctx, "cache/t1/orders", []byte("a")))
	require.NoError(t, store.Write(ctx, "cache/t2/orders", []byte("b")))
	require.NoError(t, store.DeletePrefix(ctx, "cache/t1/"))

	_, err = store.Read(ctx, "cache/t1/orders")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	_, err = store.Read(ctx, "cache/t2/orders")
	assert.NoError(t, err)
}

func TestPebbleStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Read(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, store.Write(ctx, "k1", []byte("v1")))
	blob, err := store.Read(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), blob)

	require.NoError(t, store.Write(ctx, "cache/t1/orders", []byte("a")))
	require.NoError(t, store.Write(ctx, "cache/t1/prescriptions", []byte("b")))
	require.NoError(t, store.Write(ctx, "cache/t2/orders", []byte("c")))
	require.NoError(t, store.DeletePrefix(ctx, "cache/t1/"))

	_, err = store.Read(ctx, "cache/t1/orders")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	_, err = store.Read(ctx, "cache/t2/orders")
	assert.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "k1"))
	_, err = store.Read(ctx, "k1")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}
