package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFSStore(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := NewFSStore("")
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("creates root", func(t *testing.T) {
		store, err := NewFSStore(t.TempDir() + "/nested/blobs")
		require.NoError(t, err)
		require.NoError(t, store.Close())
	})
}

func TestFSStore_PutGet(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "documents/p1/p1_documents.json"
	require.NoError(t, store.Put(ctx, key, []byte(`[{"text":"a"}]`)))

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"text":"a"}]`), data)

	// Overwrite replaces the previous value.
	require.NoError(t, store.Put(ctx, key, []byte(`[]`)))
	data, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), data)
}

func TestFSStore_Get_NotFound(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "embeddings/p9/p9_embeddings.f32")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFSStore_InvalidKeys(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
	}{
		{name: "empty", key: ""},
		{name: "absolute", key: "/etc/passwd"},
		{name: "traversal", key: "../outside"},
		{name: "nested traversal", key: "a/../../outside"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Put(ctx, tt.key, []byte("x"))
			require.ErrorIs(t, err, ErrInvalidKey)

			_, err = store.Get(ctx, tt.key)
			require.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestFSStore_ContextCancelled(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, store.Put(ctx, "k", []byte("v")))
	_, err = store.Get(ctx, "k")
	require.Error(t, err)
}

func TestNewStore_Factory(t *testing.T) {
	t.Run("fs default", func(t *testing.T) {
		store, err := NewStore(Config{Path: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &FSStore{}, store)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewStore(Config{Provider: "s3"})
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}
