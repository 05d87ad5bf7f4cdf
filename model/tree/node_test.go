package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/treemirror/runtime/pool"
)

func buildFolder(t *testing.T, reg *pool.Registry) *Folder {
	folders := pool.Of[*Folder](reg, NewFolder)
	files := pool.Of[*File](reg, NewFile)
	root, err := folders.Acquire(4, 0, Entry{Name: "game", Dir: true}, "")
	require.NoError(t, err)
	for _, name := range []string{"mods", "saves"} {
		sub, err := folders.Acquire(4, 0, Entry{Name: name, Dir: true}, root.Path)
		require.NoError(t, err)
		root.AddFolder(sub)
	}
	marker, err := files.Acquire(4, 0, Entry{Name: "config.json"}, root.Folders[0].Path)
	require.NoError(t, err)
	root.Folders[0].AddFile(marker)
	for _, name := range []string{"a.txt", "b.txt"} {
		file, err := files.Acquire(4, 0, Entry{Name: name}, root.Path)
		require.NoError(t, err)
		root.AddFile(file)
	}
	reg.Tick()
	return root
}

func TestFolder_Paths(t *testing.T) {
	root := buildFolder(t, pool.NewRegistry())
	assert.Equal(t, "/", root.Path)
	assert.Equal(t, "/mods", root.Folder("mods").Path)
	assert.Equal(t, "/mods/config.json", root.Folder("mods").File("config.json").Path)
	assert.Equal(t, "txt", root.File("a.txt").Ext())
	assert.True(t, root.Has("saves"))
	assert.False(t, root.Has("missing"))
}

func TestFolder_Classify(t *testing.T) {
	root := buildFolder(t, pool.NewRegistry())
	root.Classify("config.json")
	require.Len(t, root.Special, 1)
	require.Len(t, root.Normal, 1)
	assert.Equal(t, "mods", root.Special[0].Name)
	assert.Equal(t, "saves", root.Normal[0].Name)

	root.Classify("")
	assert.Empty(t, root.Special)
	assert.Len(t, root.Normal, 2)
}

func TestFolder_Prune(t *testing.T) {
	root := buildFolder(t, pool.NewRegistry())
	goneFiles, goneFolders := root.Prune(map[string]bool{"b.txt": true}, map[string]bool{"mods": true})
	require.Len(t, goneFiles, 1)
	require.Len(t, goneFolders, 1)
	assert.Equal(t, "a.txt", goneFiles[0].Name)
	assert.Equal(t, "saves", goneFolders[0].Name)
	assert.Len(t, root.Files, 1)
	assert.Len(t, root.Folders, 1)
}

func TestFolder_ReleaseAll(t *testing.T) {
	reg := pool.NewRegistry()
	root := buildFolder(t, reg)
	mods := root.Folder("mods")
	marker := mods.File("config.json")

	require.NoError(t, root.ReleaseAll())
	reg.Tick()
	assert.Zero(t, root.Serial())
	assert.Zero(t, mods.Serial())
	assert.Zero(t, marker.Serial())
	assert.Nil(t, root.Files)
	assert.Equal(t, "", marker.Path)
	for _, s := range reg.Stats() {
		assert.Equal(t, 0, s.InUse, s.Kind)
	}
}

func TestFolder_Detach(t *testing.T) {
	root := buildFolder(t, pool.NewRegistry())
	root.Classify("config.json")
	mods := root.DetachFolder("mods")
	require.NotNil(t, mods)
	assert.Nil(t, root.Folder("mods"))
	assert.Empty(t, root.Special)
	assert.NotNil(t, root.DetachFile("a.txt"))
	assert.Nil(t, root.DetachFile("a.txt"))
	files, folders := root.Count()
	assert.Equal(t, 1, files)
	assert.Equal(t, 1, folders)
}
