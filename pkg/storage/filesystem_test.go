package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutExistsGet(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	key := "cas/sha256/abc123"

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, store.Put(ctx, key, []byte("resistor datasheet"), "application/pdf"))
	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	require.True(t, exists)

	// identical key again must not fail
	require.NoError(t, store.Put(ctx, key, []byte("resistor datasheet"), "application/pdf"))

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "resistor datasheet", string(data))
}

func TestLocalStorageGetMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "cas/sha256/missing")
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), "../outside", []byte("x"), "text/plain")
	require.Error(t, err)
}

func TestLocalStorageHonoursCancelledContext(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Exists(ctx, "cas/sha256/abc")
	require.ErrorIs(t, err, context.Canceled)
}
