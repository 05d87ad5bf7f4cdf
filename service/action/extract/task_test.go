package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/treemirror/archive"
	"github.com/viant/treemirror/model/task"
	"github.com/viant/treemirror/runtime/pool"
	"github.com/viant/treemirror/service/mirror"
)

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for name, content := range files {
		w, err := writer.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buffer.Bytes()
}

func newMirror(t *testing.T) *mirror.Service {
	t.Helper()
	srv := mirror.New(mirror.WithProvider(afs.New()), mirror.WithConfig(&mirror.Config{Marker: "config.json"}))
	require.NoError(t, srv.Init(context.Background(), "mem://localhost/"+uuid.New().String()))
	t.Cleanup(func() { _ = srv.Close(context.Background()) })
	return srv
}

func acquire(t *testing.T, registry *pool.Registry, request Request, m Mirror) *Task {
	t.Helper()
	ret, err := pool.Of[*Task](registry, New).Acquire(0, 0, request, m)
	require.NoError(t, err)
	return ret
}

func TestTask_Execute(t *testing.T) {
	tree := newMirror(t)
	registry := pool.NewRegistry()
	ctx := context.Background()
	extract := acquire(t, registry, Request{Dest: "/mods/pack", Marker: "config.json", MarkerData: []byte(`{"enabled":true}`)}, tree)
	assert.Equal(t, Kind, extract.Kind())
	var seen []int
	extract.OnProgress(func(info task.Info) { seen = append(seen, info.Progress) })
	extract.SetInput(zipOf(t, map[string]string{"a.txt": "A", "sub/b.txt": "B"}))

	require.NoError(t, extract.Execute(ctx))
	assert.Equal(t, 100, extract.Progress())
	assert.Equal(t, []int{50, 100}, seen)

	for location, expect := range map[string]string{
		"/mods/pack/a.txt":       "A",
		"/mods/pack/sub/b.txt":   "B",
		"/mods/pack/config.json": `{"enabled":true}`,
	} {
		content, err := tree.Content(ctx, location)
		require.NoError(t, err, location)
		assert.Equal(t, expect, string(content), location)
	}
	mods, err := tree.FolderByPath(ctx, "/mods")
	require.NoError(t, err)
	require.Len(t, mods.Special, 1)
	assert.Equal(t, "pack", mods.Special[0])
}

func TestTask_Failures(t *testing.T) {
	tree := newMirror(t)
	registry := pool.NewRegistry()
	ctx := context.Background()

	var testCases = []struct {
		description string
		input       []byte
		mirror      Mirror
		expect      error
	}{
		{description: "no input", mirror: tree, expect: ErrNoInput},
		{description: "no mirror", input: zipOf(t, map[string]string{"a": "a"}), expect: ErrRequest},
		{description: "unsafe entry", input: zipOf(t, map[string]string{"../evil.txt": "x"}), mirror: tree, expect: archive.ErrUnsafePath},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			extract := acquire(t, registry, Request{Dest: "/out"}, testCase.mirror)
			extract.SetInput(testCase.input)
			assert.ErrorIs(t, extract.Execute(ctx), testCase.expect)
		})
	}
	_, err := tree.FolderByPath(ctx, "/out")
	assert.ErrorIs(t, err, mirror.ErrNotFound)
}
