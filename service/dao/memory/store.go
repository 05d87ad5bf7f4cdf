// Package memory provides a process local dao.Service.
package memory

import (
	"context"
	"sync"

	"github.com/viant/treemirror/service/dao"
)

// Store keeps entities of type *T mapped by a comparable key K obtained from
// keySelector. Values are copied on the way in and out.
type Store[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]T
	keySelector func(*T) K
}

func New[K comparable, T any](keySelector func(*T) K) *Store[K, T] {
	return &Store[K, T]{
		records:     make(map[K]T),
		keySelector: keySelector,
	}
}

func (s *Store[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	var zero K
	if key == zero {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = *v
	return nil
}

func (s *Store[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return &v, nil
}

func (s *Store[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return dao.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

func (s *Store[K, T]) List(_ context.Context) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		item := v
		out = append(out, &item)
	}
	return out, nil
}

var _ dao.Service[string, struct{}] = (*Store[string, struct{}])(nil)
