package mirror

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/treemirror/archive"
	"github.com/viant/treemirror/internal/clock"
	"github.com/viant/treemirror/model/tree"
	"go.uber.org/zap"
)

// writePriority lets content changes overtake queued reads and sweeps.
const writePriority = 1

// FolderByPath resolves p to a folder, or to the parent folder when the last
// segment names a file, and returns a copy of its subtree.
func (s *Service) FolderByPath(ctx context.Context, p string) (*Node, error) {
	var ret *Node
	err := s.run(ctx, statusResolving, 0, func(ctx context.Context) error {
		folder, _, err := s.resolve(p)
		if err != nil {
			return err
		}
		ret = s.nodeOf(folder)
		return nil
	})
	return ret, err
}

// FileByPath resolves p to a file and returns a copy of its node.
func (s *Service) FileByPath(ctx context.Context, p string) (*FileNode, error) {
	var ret *FileNode
	err := s.run(ctx, statusResolving, 0, func(ctx context.Context) error {
		_, f, err := s.resolve(p)
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("%w: %v is not a file", ErrNotFound, tree.Normalize(p))
		}
		node := fileNodeOf(f)
		ret = &node
		return nil
	})
	return ret, err
}

// CreateFolder creates p and any missing ancestors.
func (s *Service) CreateFolder(ctx context.Context, p string) (*Node, error) {
	var ret *Node
	err := s.run(ctx, statusCreating, 0, func(ctx context.Context) error {
		folder, err := s.createPath(ctx, p)
		if err != nil {
			return err
		}
		ret = s.nodeOf(folder)
		return nil
	})
	return ret, err
}

// CreateFile writes data to dir/name, creating dir when missing. An existing
// file is overwritten in place.
func (s *Service) CreateFile(ctx context.Context, dir, name string, data []byte) (*FileNode, error) {
	name, err := validName(name)
	if err != nil {
		return nil, err
	}
	var ret *FileNode
	err = s.run(ctx, statusCreating, writePriority, func(ctx context.Context) error {
		f, err := s.createFile(ctx, dir, name, data)
		if err != nil {
			return err
		}
		node := fileNodeOf(f)
		ret = &node
		return nil
	})
	return ret, err
}

// Content reads the file at p.
func (s *Service) Content(ctx context.Context, p string) ([]byte, error) {
	var ret []byte
	err := s.run(ctx, statusReading, 0, func(ctx context.Context) error {
		_, f, err := s.resolve(p)
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("%w: %v is not a file", ErrNotFound, tree.Normalize(p))
		}
		if ret, err = s.provider.DownloadWithURL(ctx, f.URL); err != nil {
			return fmt.Errorf("failed to read %v: %w", f.Path, err)
		}
		return nil
	})
	return ret, err
}

// UpdateContent replaces the content of the existing file at p.
func (s *Service) UpdateContent(ctx context.Context, p string, data []byte) error {
	return s.run(ctx, statusWriting, writePriority, func(ctx context.Context) error {
		parent, f, _, err := s.locate(p)
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("%w: %v is not a file", ErrNotFound, tree.Normalize(p))
		}
		_, err = s.writeFile(ctx, parent, f.Name, data)
		return err
	})
}

// Delete removes the file or folder at p; folders are removed recursively
// and their nodes released.
func (s *Service) Delete(ctx context.Context, p string) error {
	return s.run(ctx, statusDeleting, writePriority, func(ctx context.Context) error {
		parent, f, folder, err := s.locate(p)
		if err != nil {
			return err
		}
		if f != nil {
			if err = s.provider.Delete(ctx, f.URL); err != nil {
				return fmt.Errorf("failed to delete %v: %w", f.Path, err)
			}
			parent.DetachFile(f.Name)
			marker := f.Name == s.config.Marker
			if err = f.Release(); err != nil {
				return err
			}
			if marker {
				s.reclassify(parent)
			}
			return nil
		}
		if err = s.provider.Delete(ctx, folder.URL); err != nil {
			return fmt.Errorf("failed to delete %v: %w", folder.Path, err)
		}
		parent.DetachFolder(folder.Name)
		parent.Classify(s.config.Marker)
		return folder.ReleaseAll()
	})
}

// Rename gives the node at p a new name within its folder. Files keep their
// node identity; folders are copied and the source deleted.
func (s *Service) Rename(ctx context.Context, p, newName string) error {
	newName, err := validName(newName)
	if err != nil {
		return err
	}
	return s.run(ctx, statusRenaming, 0, func(ctx context.Context) error {
		parent, f, folder, err := s.locate(p)
		if err != nil {
			return err
		}
		_, name := tree.Parent(p)
		if name == newName {
			return nil
		}
		if parent.Has(newName) {
			return fmt.Errorf("%w: %v", ErrExists, tree.Join(parent.Path, newName))
		}
		if f != nil {
			return s.moveFile(ctx, parent, f, parent, newName)
		}
		return s.moveFolder(ctx, parent, folder, parent, newName)
	})
}

// Move relocates source into targetDir, optionally renaming it. Moving a node
// into itself, below itself or into its current parent is rejected with
// ErrInvalidMove before anything is touched.
func (s *Service) Move(ctx context.Context, source, targetDir, newName string) error {
	source, targetDir = tree.Normalize(source), tree.Normalize(targetDir)
	if source == tree.Root {
		return fmt.Errorf("%w: cannot move root", ErrInvalidPath)
	}
	parentPath, name := tree.Parent(source)
	if tree.Within(targetDir, source) {
		return fmt.Errorf("%w: %v into itself", ErrInvalidMove, source)
	}
	if targetDir == parentPath {
		return fmt.Errorf("%w: %v is already in %v", ErrInvalidMove, source, targetDir)
	}
	if newName == "" {
		newName = name
	}
	newName, err := validName(newName)
	if err != nil {
		return err
	}
	return s.run(ctx, statusMoving, 0, func(ctx context.Context) error {
		from, f, folder, err := s.locate(source)
		if err != nil {
			return err
		}
		to, target, err := s.resolve(targetDir)
		if err != nil {
			return err
		}
		if target != nil {
			return fmt.Errorf("%w: %v is a file", ErrInvalidPath, targetDir)
		}
		if to.Has(newName) {
			return fmt.Errorf("%w: %v", ErrExists, tree.Join(to.Path, newName))
		}
		if f != nil {
			return s.moveFile(ctx, from, f, to, newName)
		}
		return s.moveFolder(ctx, from, folder, to, newName)
	})
}

// Extract writes archive entries below dest, reporting progress per entry.
func (s *Service) Extract(ctx context.Context, dest string, entries []archive.Entry, onProgress func(done, total int)) error {
	return s.run(ctx, statusExtracting, writePriority, func(ctx context.Context) error {
		for i, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			dir, name := tree.Parent(tree.Join(dest, entry.Path))
			name, err := validName(name)
			if err == nil {
				_, err = s.createFile(ctx, dir, name, entry.Data)
			}
			if err != nil {
				return fmt.Errorf("failed to extract %v: %w", entry.Path, err)
			}
			if onProgress != nil {
				onProgress(i+1, len(entries))
			}
		}
		return nil
	})
}

// resolve walks from the root; the file is set when the last segment names a
// file, folder is then its parent.
func (s *Service) resolve(p string) (*tree.Folder, *tree.File, error) {
	if s.root == nil {
		return nil, nil, ErrNotInitialized
	}
	folder := s.root
	parts := tree.Split(p)
	for i, part := range parts {
		if sub := folder.Folder(part); sub != nil {
			folder = sub
			continue
		}
		if i == len(parts)-1 {
			if f := folder.File(part); f != nil {
				return folder, f, nil
			}
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrNotFound, tree.Normalize(p))
	}
	return folder, nil, nil
}

// locate finds the non root node at p with its parent folder.
func (s *Service) locate(p string) (parent *tree.Folder, f *tree.File, folder *tree.Folder, err error) {
	if s.root == nil {
		return nil, nil, nil, ErrNotInitialized
	}
	parentPath, name := tree.Parent(p)
	if name == "" {
		return nil, nil, nil, fmt.Errorf("%w: root", ErrInvalidPath)
	}
	parent, parentFile, err := s.resolve(parentPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if parentFile != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrNotFound, tree.Normalize(p))
	}
	if f = parent.File(name); f != nil {
		return parent, f, nil, nil
	}
	if folder = parent.Folder(name); folder != nil {
		return parent, nil, folder, nil
	}
	return nil, nil, nil, fmt.Errorf("%w: %v", ErrNotFound, tree.Normalize(p))
}

// createPath walks p from the root, creating missing folders.
func (s *Service) createPath(ctx context.Context, p string) (*tree.Folder, error) {
	if s.root == nil {
		return nil, ErrNotInitialized
	}
	folder := s.root
	for _, part := range tree.Split(p) {
		name, err := validName(part)
		if err != nil {
			return nil, err
		}
		if sub := folder.Folder(name); sub != nil {
			folder = sub
			continue
		}
		if folder.File(name) != nil {
			return nil, fmt.Errorf("%w: %v is a file", ErrExists, tree.Join(folder.Path, name))
		}
		if folder, err = s.createFolder(ctx, folder, name); err != nil {
			return nil, err
		}
	}
	return folder, nil
}

// createFile expects a valid name.
func (s *Service) createFile(ctx context.Context, dir, name string, data []byte) (*tree.File, error) {
	folder, err := s.createPath(ctx, dir)
	if err != nil {
		return nil, err
	}
	if folder.Folder(name) != nil {
		return nil, fmt.Errorf("%w: %v is a folder", ErrExists, tree.Join(folder.Path, name))
	}
	return s.writeFile(ctx, folder, name, data)
}

func (s *Service) createFolder(ctx context.Context, parent *tree.Folder, name string) (*tree.Folder, error) {
	URL := url.Join(parent.URL, name)
	if err := s.provider.Create(ctx, URL, file.DefaultDirOsMode, true); err != nil {
		return nil, fmt.Errorf("failed to create %v: %w", tree.Join(parent.Path, name), err)
	}
	folder, err := s.folders.Acquire(0, 0, tree.Entry{Name: name, URL: URL, Dir: true, ModTime: clock.Now()}, parent.Path)
	if err != nil {
		return nil, err
	}
	parent.AddFolder(folder)
	parent.Classify(s.config.Marker)
	return folder, nil
}

func (s *Service) writeFile(ctx context.Context, folder *tree.Folder, name string, data []byte) (*tree.File, error) {
	URL := url.Join(folder.URL, name)
	if err := s.provider.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to write %v: %w", tree.Join(folder.Path, name), err)
	}
	entry, err := s.entry(ctx, URL)
	if err != nil {
		return nil, err
	}
	if existing := folder.File(name); existing != nil {
		existing.Update(entry, folder.Path)
		return existing, nil
	}
	ret, err := s.files.Acquire(0, 0, entry, folder.Path)
	if err != nil {
		return nil, err
	}
	folder.AddFile(ret)
	if name == s.config.Marker {
		s.reclassify(folder)
	}
	return ret, nil
}

func (s *Service) moveFile(ctx context.Context, from *tree.Folder, f *tree.File, to *tree.Folder, newName string) error {
	target := url.Join(to.URL, newName)
	if err := s.provider.Move(ctx, f.URL, target); err != nil {
		return fmt.Errorf("failed to move %v: %w", f.Path, err)
	}
	entry, err := s.entry(ctx, target)
	if err != nil {
		s.logger.Warn("moved file not visible yet", zap.String("url", target), zap.Error(err))
		entry = f.Entry
		entry.Name = newName
		entry.URL = target
	}
	marker := f.Name == s.config.Marker || newName == s.config.Marker
	from.DetachFile(f.Name)
	f.Update(entry, to.Path)
	to.AddFile(f)
	if marker {
		s.reclassify(from)
		s.reclassify(to)
	}
	return nil
}

// moveFolder copies the subtree to its new location, deletes the source and
// mirrors the copy with fresh nodes.
func (s *Service) moveFolder(ctx context.Context, from, folder, to *tree.Folder, newName string) error {
	target := url.Join(to.URL, newName)
	if err := s.provider.Copy(ctx, folder.URL, target); err != nil {
		return fmt.Errorf("failed to copy %v: %w", folder.Path, err)
	}
	if err := s.provider.Delete(ctx, folder.URL); err != nil {
		return fmt.Errorf("failed to delete %v after copy: %w", folder.Path, err)
	}
	from.DetachFolder(folder.Name)
	from.Classify(s.config.Marker)
	if err := folder.ReleaseAll(); err != nil {
		return err
	}
	moved, err := s.folders.Acquire(0, 0, tree.Entry{Name: newName, URL: target, Dir: true, ModTime: clock.Now()}, to.Path)
	if err != nil {
		return err
	}
	to.AddFolder(moved)
	err = s.sweep(ctx, moved)
	to.Classify(s.config.Marker)
	return err
}

// reclassify refreshes the partition of the folder's parent.
func (s *Service) reclassify(folder *tree.Folder) {
	if folder.Path == tree.Root {
		return
	}
	parentPath, _ := tree.Parent(folder.Path)
	if parent, _, err := s.resolve(parentPath); err == nil {
		parent.Classify(s.config.Marker)
	}
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(tree.SanitizeName(name))
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: name %q", ErrInvalidPath, name)
	}
	return name, nil
}
