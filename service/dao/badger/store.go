// Package badger persists JSON encoded records in an embedded BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/viant/treemirror/service/dao"
)

// Config controls the database location.
type Config struct {
	Path     string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
	InMemory bool   `json:"inMemory,omitempty" yaml:"inMemory,omitempty" mapstructure:"inMemory"`
}

// Store keeps records under prefix+key.
type Store[T any] struct {
	db          *badgerdb.DB
	owned       bool
	prefix      []byte
	keySelector func(*T) string
}

// Open opens a database described by config.
func Open(config Config) (*badgerdb.DB, error) {
	var opts badgerdb.Options
	if config.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if config.Path == "" {
			return nil, fmt.Errorf("badger path was empty")
		}
		opts = badgerdb.DefaultOptions(config.Path)
	}
	opts = opts.WithLoggingLevel(badgerdb.WARNING)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return db, nil
}

// New opens a database and returns a store owning it.
func New[T any](config Config, prefix string, keySelector func(*T) string) (*Store[T], error) {
	db, err := Open(config)
	if err != nil {
		return nil, err
	}
	ret := NewWithDB[T](db, prefix, keySelector)
	ret.owned = true
	return ret, nil
}

// NewWithDB returns a store sharing db; Close leaves db open.
func NewWithDB[T any](db *badgerdb.DB, prefix string, keySelector func(*T) string) *Store[T] {
	return &Store[T]{db: db, prefix: []byte(prefix), keySelector: keySelector}
}

func (s *Store[T]) key(id string) []byte {
	ret := make([]byte, 0, len(s.prefix)+len(id))
	ret = append(ret, s.prefix...)
	return append(ret, id...)
}

func (s *Store[T]) Save(_ context.Context, v *T) error {
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
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(s.key(id), data)
	})
}

func (s *Store[T]) Load(_ context.Context, id string) (*T, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	var ret T
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(s.key(id))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("%w: %v", dao.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ret)
		})
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (s *Store[T]) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(s.key(id)); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return fmt.Errorf("%w: %v", dao.ErrNotFound, id)
			}
			return err
		}
		return txn.Delete(s.key(id))
	})
}

func (s *Store[T]) List(_ context.Context) ([]*T, error) {
	var out []*T
	err := s.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(s.prefix); it.ValidForPrefix(s.prefix); it.Next() {
			var item T
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			}); err != nil {
				return err
			}
			out = append(out, &item)
		}
		return nil
	})
	return out, err
}

func (s *Store[T]) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

var _ dao.Service[string, struct{}] = (*Store[struct{}])(nil)
var _ dao.Closer = (*Store[struct{}])(nil)
