package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"memorial-narrator/internal/domain"
)

func TestCollect_ListsStoredMemories(t *testing.T) {
	store := newFakeStore()
	store.memorials["mem-1"] = walterMemorial()
	store.memories = []domain.Memory{
		{ID: "a", MemorialID: "mem-1", Content: "first"},
		{ID: "b", MemorialID: "other", Content: "elsewhere"},
		{ID: "c", MemorialID: "mem-1", Content: "second"},
	}
	c, err := NewCollector(store, store)
	require.NoError(t, err)

	got, err := c.Collect(context.Background(), "mem-1", nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].ID)
	require.Equal(t, "c", got[1].ID)
}

func TestCollect_Errors(t *testing.T) {
	store := newFakeStore()
	store.memorials["empty"] = domain.Memorial{ID: "empty"}
	c, err := NewCollector(store, store)
	require.NoError(t, err)

	_, err = c.Collect(context.Background(), "empty", nil)
	require.ErrorIs(t, err, ErrNoMemories)

	_, err = c.Collect(context.Background(), "missing", nil)
	require.ErrorIs(t, err, ErrMemorialNotFound)

	store.listErr = errors.New("boom")
	_, err = c.Collect(context.Background(), "empty", nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoMemories)
}

func TestCollect_SuppliedDropsBlankContent(t *testing.T) {
	store := newFakeStore()
	c, err := NewCollector(store, store)
	require.NoError(t, err)

	got, err := c.Collect(context.Background(), "mem-1", []domain.Memory{{Content: " "}, {Content: "kept"}})
	require.NoError(t, err)
	require.Equal(t, []domain.Memory{{Content: "kept"}}, got)
	require.Zero(t, store.lists)
}
