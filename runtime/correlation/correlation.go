// Package correlation carries the owner token of a logical tree operation
// through context so nested calls reuse the lock held by their top-level call.
package correlation

import (
	"context"

	"github.com/viant/treemirror/internal/idgen"
)

type ownerKeyT struct{}

var ownerKey ownerKeyT

// WithOwner returns a context carrying id.
func WithOwner(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ownerKey, id)
}

// FromContext returns the owner id carried by ctx.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(ownerKey).(string)
	return id, ok && id != ""
}

// Ensure returns ctx unchanged when it already carries an owner; otherwise it
// attaches a freshly generated one. created reports which case applied.
func Ensure(ctx context.Context) (_ context.Context, id string, created bool) {
	if id, ok := FromContext(ctx); ok {
		return ctx, id, false
	}
	id = idgen.New()
	return WithOwner(ctx, id), id, true
}
