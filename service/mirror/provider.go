package mirror

import (
	"context"
	"io"
	"os"

	"github.com/viant/afs/storage"
)

// Provider is the external resource the tree mirrors; afs.Service satisfies it.
type Provider interface {
	List(ctx context.Context, URL string, options ...storage.Option) ([]storage.Object, error)
	Object(ctx context.Context, URL string, options ...storage.Option) (storage.Object, error)
	Exists(ctx context.Context, URL string, options ...storage.Option) (bool, error)
	Create(ctx context.Context, URL string, mode os.FileMode, isDir bool, options ...storage.Option) error
	Upload(ctx context.Context, URL string, mode os.FileMode, reader io.Reader, options ...storage.Option) error
	DownloadWithURL(ctx context.Context, URL string, options ...storage.Option) ([]byte, error)
	Delete(ctx context.Context, URL string, options ...storage.Option) error
	Copy(ctx context.Context, sourceURL, destURL string, options ...storage.Option) error
	Move(ctx context.Context, sourceURL, destURL string, options ...storage.Option) error
}
