package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "/tmp/genetic/abc", []byte(`{"fitness":1}`)))

	value, ok, err := store.Get(ctx, "/tmp/genetic/abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`{"fitness":1}`), value)

	_, ok, err = store.Get(ctx, "/tmp/genetic/missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreReplace(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("one")))
	require.NoError(t, store.Put(ctx, "k", []byte("two")))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("two"), value)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStoreCopiesBuffers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	buf := []byte("original")
	require.NoError(t, store.Put(ctx, "k", buf))
	buf[0] = 'X'

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("original"), value)

	value[0] = 'Y'
	again, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}
