package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionCartToggle(t *testing.T) {
	cart := newSelectionCart("prog-1")

	assert.True(t, cart.Toggle("dev-1"))
	assert.Equal(t, 1, cart.Size())

	assert.False(t, cart.Toggle("dev-1"))
	assert.Equal(t, 0, cart.Size())
}

func TestSelectionCartUnionIdempotent(t *testing.T) {
	cart := newSelectionCart("prog-1")

	added := cart.Union([]string{"dev-1", "dev-2"})
	assert.Equal(t, 2, added)

	added = cart.Union([]string{"dev-1", "dev-2"})
	assert.Equal(t, 0, added)
	assert.Equal(t, []string{"dev-1", "dev-2"}, cart.IDs())
}

func TestSelectionCartSelectAllReplaces(t *testing.T) {
	cart := newSelectionCart("prog-1")
	cart.Union([]string{"dev-1"})

	cart.SelectAll([]string{"dev-2", "dev-3"})
	assert.Equal(t, []string{"dev-2", "dev-3"}, cart.IDs())
}

func TestCartStoreLifecycle(t *testing.T) {
	store := NewCartStore(time.Minute)

	cart := store.Create("prog-1")
	require.NotEmpty(t, cart.ID)

	loaded, err := store.Get(cart.ID)
	require.NoError(t, err)
	assert.Same(t, cart, loaded)

	store.Delete(cart.ID)
	_, err = store.Get(cart.ID)
	assert.Error(t, err)
}

func TestCartStoreRebind(t *testing.T) {
	store := NewCartStore(time.Minute)
	cart := store.Create("prog-1")
	cart.Union([]string{"dev-1", "dev-2"})

	// Same program keeps the selection.
	rebound, err := store.Rebind(cart.ID, "prog-1")
	require.NoError(t, err)
	assert.Equal(t, 2, rebound.Size())

	// A different program invalidates it.
	rebound, err = store.Rebind(cart.ID, "prog-2")
	require.NoError(t, err)
	assert.Equal(t, "prog-2", rebound.ProgramID)
	assert.Equal(t, 0, rebound.Size())
}
