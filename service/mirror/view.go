package mirror

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/viant/treemirror/model/tree"
)

// Node is a detached copy of a folder subtree. Pooled tree nodes never leave
// the lock; callers get a Node instead.
type Node struct {
	Name   string `json:"name" yaml:"name"`
	Path   string `json:"path" yaml:"path"`
	URL    string `json:"url" yaml:"url"`
	Serial uint32 `json:"serial" yaml:"serial"`
	// Marked is set when the folder holds the marker file.
	Marked  bool       `json:"marked,omitempty" yaml:"marked,omitempty"`
	Files   []FileNode `json:"files,omitempty" yaml:"files,omitempty"`
	Folders []*Node    `json:"folders,omitempty" yaml:"folders,omitempty"`
	// Special and Normal name the sub folders with and without the marker.
	Special []string `json:"special,omitempty" yaml:"special,omitempty"`
	Normal  []string `json:"normal,omitempty" yaml:"normal,omitempty"`
}

// File returns the direct child file with name.
func (n *Node) File(name string) *FileNode {
	for i := range n.Files {
		if n.Files[i].Name == name {
			return &n.Files[i]
		}
	}
	return nil
}

// Folder returns the direct child folder with name.
func (n *Node) Folder(name string) *Node {
	for _, candidate := range n.Folders {
		if candidate.Name == name {
			return candidate
		}
	}
	return nil
}

// FileNode is a detached copy of a file node.
type FileNode struct {
	Name   string `json:"name" yaml:"name"`
	Path   string `json:"path" yaml:"path"`
	URL    string `json:"url" yaml:"url"`
	Serial uint32 `json:"serial" yaml:"serial"`
	Size   int64  `json:"size" yaml:"size"`
}

// Ext returns the file extension without the dot.
func (f *FileNode) Ext() string {
	return strings.TrimPrefix(path.Ext(f.Name), ".")
}

// View copies the subtree at p under the lock so it can be inspected freely.
func (s *Service) View(ctx context.Context, p string) (*Node, error) {
	var ret *Node
	err := s.run(ctx, statusViewing, 0, func(ctx context.Context) error {
		folder, f, err := s.resolve(p)
		if err != nil {
			return err
		}
		if f != nil {
			return fmt.Errorf("%w: %v is a file", ErrInvalidPath, tree.Normalize(p))
		}
		ret = s.nodeOf(folder)
		return nil
	})
	return ret, err
}

func (s *Service) nodeOf(folder *tree.Folder) *Node {
	ret := &Node{
		Name:   folder.Name,
		Path:   folder.Path,
		URL:    folder.URL,
		Serial: folder.Serial(),
		Marked: s.config.Marker != "" && folder.File(s.config.Marker) != nil,
	}
	for _, f := range folder.Files {
		ret.Files = append(ret.Files, fileNodeOf(f))
	}
	for _, sub := range folder.Folders {
		ret.Folders = append(ret.Folders, s.nodeOf(sub))
	}
	for _, sub := range folder.Special {
		ret.Special = append(ret.Special, sub.Name)
	}
	for _, sub := range folder.Normal {
		ret.Normal = append(ret.Normal, sub.Name)
	}
	return ret
}

func fileNodeOf(f *tree.File) FileNode {
	return FileNode{Name: f.Name, Path: f.Path, URL: f.URL, Serial: f.Serial(), Size: f.Size}
}
