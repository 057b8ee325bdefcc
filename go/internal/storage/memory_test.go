package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetMissingKey(t *testing.T) {
	store := NewMemoryStore()

	value, ok, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "roster", []byte(`["a"]`)))

	value, ok, err := store.Get(ctx, "roster")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`["a"]`), value)
}

func TestMemoryStoreSetReplaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "roster", []byte(`old`)))
	require.NoError(t, store.Set(ctx, "roster", []byte(`new`)))

	value, ok, err := store.Get(ctx, "roster")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`new`), value)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := []byte(`value`)
	require.NoError(t, store.Set(ctx, "k", original))
	original[0] = 'X'

	value, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`value`), value)

	value[0] = 'Y'
	again, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`value`), again)
}
