// Package archive decodes archives into (relative path, content) entries.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	// ErrUnsafePath is returned for entries escaping the extraction root.
	ErrUnsafePath = errors.New("archive: unsafe entry path")
	ErrTooLarge   = errors.New("archive: content exceeds limit")
)

const (
	DefaultMaxEntrySize int64 = 256 << 20
	DefaultMaxTotalSize int64 = 1 << 30
)

type limits struct {
	entry int64
	total int64
}

type Option func(l *limits)

// WithMaxEntrySize caps the decompressed size of a single entry.
func WithMaxEntrySize(n int64) Option {
	return func(l *limits) { l.entry = n }
}

// WithMaxTotalSize caps the decompressed size of the whole archive.
func WithMaxTotalSize(n int64) Option {
	return func(l *limits) { l.total = n }
}

// Entry is a decoded regular file.
type Entry struct {
	Path string
	Data []byte
}

// Unzip decodes every regular file of a zip archive, in archive order.
// Decompression stops with ErrTooLarge once a limit is crossed.
func Unzip(data []byte, options ...Option) ([]Entry, error) {
	limit := &limits{entry: DefaultMaxEntrySize, total: DefaultMaxTotalSize}
	for _, opt := range options {
		opt(limit)
	}
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	// insecure names are rejected per entry below
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}
	ret := make([]Entry, 0, len(reader.File))
	remaining := limit.total
	for _, file := range reader.File {
		if file.FileInfo().IsDir() || strings.HasSuffix(file.Name, "/") {
			continue
		}
		name, err := cleanPath(file.Name)
		if err != nil {
			return nil, err
		}
		content, err := readFile(file, min(limit.entry, remaining))
		if err != nil {
			return nil, fmt.Errorf("failed to read %v: %w", file.Name, err)
		}
		remaining -= int64(len(content))
		ret = append(ret, Entry{Path: name, Data: content})
	}
	return ret, nil
}

// readFile reads at most limit bytes; the header size is not trusted.
func readFile(file *zip.File, limit int64) ([]byte, error) {
	if file.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, file.UncompressedSize64)
	}
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	ret, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(ret)) > limit {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, limit)
	}
	return ret, nil
}

func cleanPath(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	for _, segment := range strings.Split(name, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %v", ErrUnsafePath, name)
		}
	}
	cleaned := path.Clean("/" + name)
	if cleaned == "/" {
		return "", fmt.Errorf("%w: %v", ErrUnsafePath, name)
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}
