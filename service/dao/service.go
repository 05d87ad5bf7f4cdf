// Package dao defines keyed persistence for small records such as the
// mirrored root handle. Implementations live in the memory, fs and badger
// sub packages.
package dao

import (
	"context"
)

type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context) ([]*T, error)
}

// Closer is implemented by stores holding external resources.
type Closer interface {
	Close() error
}
