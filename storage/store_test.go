package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentChunk(t *testing.T) {
	data := []byte("some chunk data")
	ch := NewContentChunk(data)
	assert.Equal(t, crypto.Keccak256(data), []byte(ch.Address()), "content chunks are addressed by their hash")
	assert.Equal(t, data, ch.Data())
}

func TestMemStore(t *testing.T) {
	store := NewMemStore(10)
	defer store.Close()
	ctx := context.Background()

	ch := NewContentChunk([]byte("hello"))
	require.NoError(t, store.Put(ctx, ch))

	got, err := store.Get(ctx, ch.Address())
	require.NoError(t, err)
	assert.Equal(t, ch.Data(), got.Data())
	assert.True(t, got.Address().Equal(ch.Address()))

	// storing twice is a no-op
	require.NoError(t, store.Put(ctx, ch))

	_, err = store.Get(ctx, ZeroAddr)
	assert.ErrorIs(t, err, ErrChunkNotFound)

	store.Delete(ch.Address())
	_, err = store.Get(ctx, ch.Address())
	assert.ErrorIs(t, err, ErrChunkNotFound)
}

func TestLDBStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks")
	store, err := NewLDBStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	ch := NewContentChunk([]byte("persistent chunk"))
	require.NoError(t, store.Put(ctx, ch))
	_, err = store.Get(ctx, ZeroAddr)
	assert.ErrorIs(t, err, ErrChunkNotFound)
	require.NoError(t, store.Close())

	// data survives reopening
	store, err = NewLDBStore(path)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Get(ctx, ch.Address())
	require.NoError(t, err)
	assert.Equal(t, ch.Data(), got.Data())
}
