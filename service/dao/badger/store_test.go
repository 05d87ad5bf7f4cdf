package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/treemirror/service/dao"
)

type handle struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func byID(h *handle) string { return h.ID }

func TestStore(t *testing.T) {
	ctx := context.Background()
	store, err := New[handle](Config{InMemory: true}, "handle/", byID)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load(ctx, "root")
	assert.ErrorIs(t, err, dao.ErrNotFound)

	require.NoError(t, store.Save(ctx, &handle{ID: "root", URL: "file:///srv/tree"}))
	loaded, err := store.Load(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "file:///srv/tree", loaded.URL)

	require.NoError(t, store.Delete(ctx, "root"))
	assert.ErrorIs(t, store.Delete(ctx, "root"), dao.ErrNotFound)
}

func TestStore_SharedDBPrefixes(t *testing.T) {
	ctx := context.Background()
	db, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	handles := NewWithDB[handle](db, "handle/", byID)
	other := NewWithDB[handle](db, "other/", byID)
	require.NoError(t, handles.Save(ctx, &handle{ID: "a"}))
	require.NoError(t, handles.Save(ctx, &handle{ID: "b"}))
	require.NoError(t, other.Save(ctx, &handle{ID: "c"}))

	list, err := handles.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	require.NoError(t, handles.Close())

	list, err = other.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
