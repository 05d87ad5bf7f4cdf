package fs

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/treemirror/service/dao"
)

type handle struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	baseURL := "mem://localhost/" + uuid.New().String() + "/handles"
	fs := afs.New()
	store, err := New[handle](ctx, baseURL, func(h *handle) string { return h.ID }, WithFS[handle](fs))
	require.NoError(t, err)

	_, err = store.Load(ctx, "root")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	assert.ErrorIs(t, store.Save(ctx, &handle{}), dao.ErrInvalidID)

	require.NoError(t, store.Save(ctx, &handle{ID: "root", URL: "mem://localhost/tree"}))
	require.NoError(t, store.Save(ctx, &handle{ID: "backup", URL: "mem://localhost/other"}))
	require.NoError(t, fs.Upload(ctx, url.Join(baseURL, "broken.json"), file.DefaultFileOsMode, bytes.NewReader([]byte("{"))))

	loaded, err := store.Load(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "mem://localhost/tree", loaded.URL)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, store.Delete(ctx, "backup"))
	assert.ErrorIs(t, store.Delete(ctx, "backup"), dao.ErrNotFound)
}
