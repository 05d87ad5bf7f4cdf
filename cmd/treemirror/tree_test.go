package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/treemirror/service/mirror"
	"gopkg.in/yaml.v3"
)

func TestTreeCmd(t *testing.T) {
	ctx := context.Background()
	root := "mem://localhost/" + uuid.New().String()
	fs := afs.New()
	require.NoError(t, fs.Upload(ctx, url.Join(root, "a/b.txt"), file.DefaultFileOsMode, strings.NewReader("b")))

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"tree", root, "--log-level", "error"})
	require.NoError(t, RootCmd.Execute())

	var node mirror.Node
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &node))
	assert.Equal(t, "/", node.Path)
	require.Len(t, node.Folders, 1)
	assert.Equal(t, "a", node.Folders[0].Name)
	require.Len(t, node.Folders[0].Files, 1)
	assert.Equal(t, "b.txt", node.Folders[0].Files[0].Name)
	assert.EqualValues(t, 1, node.Folders[0].Files[0].Size)
	assert.Equal(t, "/a/b.txt", node.Folders[0].Files[0].Path)
}
