// Package tree defines the pooled nodes mirroring an external folder hierarchy.
package tree

import (
	"time"

	"github.com/viant/treemirror/runtime/pool"
)

// Entry is the provider handle of a mirrored entry.
type Entry struct {
	Name    string
	URL     string
	Dir     bool
	Size    int64
	ModTime time.Time
}

// File is a mirrored file node.
type File struct {
	pool.Object
	Entry
	Path string
}

// NewFile is the file pool factory.
func NewFile() *File { return &File{} }

// OnAcquire expects (Entry, parentPath string).
func (f *File) OnAcquire(args ...interface{}) {
	entry, parent := acquireArgs(args)
	f.Update(entry, parent)
}

// OnRelease clears the handle.
func (f *File) OnRelease() {
	f.Entry = Entry{}
	f.Path = ""
}

// Update refreshes the handle and path in place.
func (f *File) Update(entry Entry, parent string) {
	f.Entry = entry
	f.Path = Join(parent, entry.Name)
}

// Ext returns the file extension without the dot.
func (f *File) Ext() string {
	for i := len(f.Name) - 1; i >= 0; i-- {
		if f.Name[i] == '.' {
			return f.Name[i+1:]
		}
	}
	return ""
}

// Folder is a mirrored folder node; it owns its children.
type Folder struct {
	pool.Object
	Entry
	Path    string
	Files   []*File
	Folders []*Folder
	// Special holds sub folders containing the marker file, Normal the rest.
	Special []*Folder
	Normal  []*Folder
}

// NewFolder is the folder pool factory.
func NewFolder() *Folder { return &Folder{} }

// OnAcquire expects (Entry, parentPath string); an empty parent makes a root.
func (f *Folder) OnAcquire(args ...interface{}) {
	entry, parent := acquireArgs(args)
	f.Update(entry, parent)
}

// OnRelease drops the handle and child references.
func (f *Folder) OnRelease() {
	f.Entry = Entry{}
	f.Path = ""
	f.Files = nil
	f.Folders = nil
	f.Special = nil
	f.Normal = nil
}

// Update refreshes the handle and path in place.
func (f *Folder) Update(entry Entry, parent string) {
	f.Entry = entry
	if parent == "" {
		f.Path = Root
		return
	}
	f.Path = Join(parent, entry.Name)
}

// File returns the direct child file with name.
func (f *Folder) File(name string) *File {
	for _, candidate := range f.Files {
		if candidate.Name == name {
			return candidate
		}
	}
	return nil
}

// Folder returns the direct sub folder with name.
func (f *Folder) Folder(name string) *Folder {
	for _, candidate := range f.Folders {
		if candidate.Name == name {
			return candidate
		}
	}
	return nil
}

// Has reports whether a direct child of either kind is called name.
func (f *Folder) Has(name string) bool {
	return f.File(name) != nil || f.Folder(name) != nil
}

// AddFile appends a file node.
func (f *Folder) AddFile(file *File) { f.Files = append(f.Files, file) }

// AddFolder appends a sub folder node.
func (f *Folder) AddFolder(folder *Folder) { f.Folders = append(f.Folders, folder) }

// DetachFile removes and returns the named file.
func (f *Folder) DetachFile(name string) *File {
	for i, candidate := range f.Files {
		if candidate.Name == name {
			f.Files = append(f.Files[:i], f.Files[i+1:]...)
			return candidate
		}
	}
	return nil
}

// DetachFolder removes and returns the named sub folder.
func (f *Folder) DetachFolder(name string) *Folder {
	for i, candidate := range f.Folders {
		if candidate.Name == name {
			f.Folders = append(f.Folders[:i], f.Folders[i+1:]...)
			f.dropDerived(candidate)
			return candidate
		}
	}
	return nil
}

// Prune detaches every child not present in the observed name sets, keeping
// the order of survivors.
func (f *Folder) Prune(files, folders map[string]bool) ([]*File, []*Folder) {
	var goneFiles []*File
	keptFiles := f.Files[:0]
	for _, file := range f.Files {
		if files[file.Name] {
			keptFiles = append(keptFiles, file)
			continue
		}
		goneFiles = append(goneFiles, file)
	}
	clearTail(f.Files, len(keptFiles))
	f.Files = keptFiles

	var goneFolders []*Folder
	keptFolders := f.Folders[:0]
	for _, folder := range f.Folders {
		if folders[folder.Name] {
			keptFolders = append(keptFolders, folder)
			continue
		}
		goneFolders = append(goneFolders, folder)
	}
	clearTail(f.Folders, len(keptFolders))
	f.Folders = keptFolders
	return goneFiles, goneFolders
}

// Classify recomputes the Special and Normal partitions.
func (f *Folder) Classify(marker string) {
	special := make([]*Folder, 0)
	normal := make([]*Folder, 0, len(f.Folders))
	for _, folder := range f.Folders {
		if marker != "" && folder.File(marker) != nil {
			special = append(special, folder)
			continue
		}
		normal = append(normal, folder)
	}
	f.Special = special
	f.Normal = normal
}

// ReleaseAll releases the whole subtree, children before their folder.
func (f *Folder) ReleaseAll() error {
	for _, file := range f.Files {
		if err := file.Release(); err != nil {
			return err
		}
	}
	for _, folder := range f.Folders {
		if err := folder.ReleaseAll(); err != nil {
			return err
		}
	}
	return f.Release()
}

// Count returns the number of files and folders below f.
func (f *Folder) Count() (files, folders int) {
	files = len(f.Files)
	folders = len(f.Folders)
	for _, folder := range f.Folders {
		subFiles, subFolders := folder.Count()
		files += subFiles
		folders += subFolders
	}
	return files, folders
}

func (f *Folder) dropDerived(folder *Folder) {
	f.Special = without(f.Special, folder)
	f.Normal = without(f.Normal, folder)
}

func without(folders []*Folder, folder *Folder) []*Folder {
	ret := make([]*Folder, 0, len(folders))
	for _, candidate := range folders {
		if candidate != folder {
			ret = append(ret, candidate)
		}
	}
	return ret
}

func clearTail[T any](items []*T, from int) {
	for i := from; i < len(items); i++ {
		items[i] = nil
	}
}

func acquireArgs(args []interface{}) (Entry, string) {
	var entry Entry
	var parent string
	if len(args) > 0 {
		entry, _ = args[0].(Entry)
	}
	if len(args) > 1 {
		parent, _ = args[1].(string)
	}
	return entry, parent
}
