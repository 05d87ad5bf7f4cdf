// Package fs persists JSON documents through an afs storage location, one
// file per key.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/treemirror/service/dao"
	"go.uber.org/zap"
)

const ext = ".json"

type Store[T any] struct {
	baseURL     string
	fs          afs.Service
	keySelector func(*T) string
	logger      *zap.Logger
	mu          sync.RWMutex
}

// Option customises a Store.
type Option[T any] func(s *Store[T])

func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(s *Store[T]) {
		s.logger = logger
	}
}

// WithFS replaces the default afs service.
func WithFS[T any](fs afs.Service) Option[T] {
	return func(s *Store[T]) {
		s.fs = fs
	}
}

func (s *Store[T]) Save(ctx context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	id := s.keySelector(v)
	if id == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %v: %w", id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	location := s.location(id)
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save %v: %w", location, err)
	}
	return nil
}

func (s *Store[T]) Load(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	location := s.location(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check %v: %w", location, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %v", dao.ErrNotFound, id)
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %v: %w", location, err)
	}
	var ret T
	if err = json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %v: %w", location, err)
	}
	return &ret, nil
}

func (s *Store[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	location := s.location(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check %v: %w", location, err)
	}
	if !exists {
		return fmt.Errorf("%w: %v", dao.ErrNotFound, id)
	}
	return s.fs.Delete(ctx, location)
}

// List decodes every document under the base location, skipping unreadable
// ones.
func (s *Store[T]) List(ctx context.Context) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list %v: %w", s.baseURL, err)
	}
	var out []*T
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ext) {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			s.logger.Warn("skipping unreadable record", zap.String("url", object.URL()), zap.Error(err))
			continue
		}
		var item T
		if err = json.Unmarshal(data, &item); err != nil {
			s.logger.Warn("skipping malformed record", zap.String("url", object.URL()), zap.Error(err))
			continue
		}
		out = append(out, &item)
	}
	return out, nil
}

func (s *Store[T]) location(id string) string {
	return url.Join(s.baseURL, id+ext)
}

// New creates a store rooted at baseURL, creating the location when missing.
func New[T any](ctx context.Context, baseURL string, keySelector func(*T) string, opts ...Option[T]) (*Store[T], error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL was empty")
	}
	ret := &Store[T]{
		baseURL:     url.Normalize(baseURL, file.Scheme),
		fs:          afs.New(),
		keySelector: keySelector,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	exists, err := ret.fs.Exists(ctx, ret.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check %v: %w", ret.baseURL, err)
	}
	if !exists {
		if err = ret.fs.Create(ctx, ret.baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create %v: %w", ret.baseURL, err)
		}
	}
	return ret, nil
}

var _ dao.Service[string, struct{}] = (*Store[struct{}])(nil)
