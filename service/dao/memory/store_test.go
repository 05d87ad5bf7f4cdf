package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/treemirror/service/dao"
)

type handle struct {
	ID  string
	URL string
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := New[string, handle](func(h *handle) string { return h.ID })

	_, err := store.Load(ctx, "root")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	assert.ErrorIs(t, store.Save(ctx, nil), dao.ErrNilEntity)
	assert.ErrorIs(t, store.Save(ctx, &handle{}), dao.ErrInvalidID)

	record := &handle{ID: "root", URL: "mem://localhost/a"}
	require.NoError(t, store.Save(ctx, record))
	record.URL = "mutated"

	loaded, err := store.Load(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "mem://localhost/a", loaded.URL)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, "root"))
	assert.ErrorIs(t, store.Delete(ctx, "root"), dao.ErrNotFound)
}
