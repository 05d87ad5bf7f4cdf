package task

import (
	"context"
	"fmt"
)

// Func adapts a function to Task. Acquire it with (kind string, priority int,
// fn func(ctx context.Context, t *Func) error).
type Func struct {
	Base
	fn func(ctx context.Context, t *Func) error
}

// NewFunc is the Func pool factory.
func NewFunc() *Func { return &Func{} }

func (f *Func) OnAcquire(args ...interface{}) {
	var kind string
	var priority int
	if len(args) > 0 {
		kind, _ = args[0].(string)
	}
	if len(args) > 1 {
		priority, _ = args[1].(int)
	}
	if len(args) > 2 {
		f.fn, _ = args[2].(func(ctx context.Context, t *Func) error)
	}
	f.Init(kind, priority)
}

func (f *Func) OnRelease() {
	f.Reset()
	f.fn = nil
}

func (f *Func) Execute(ctx context.Context) error {
	if f.fn == nil {
		return fmt.Errorf("task %v: no function", f.Kind())
	}
	return f.fn(ctx, f)
}

var _ Task = (*Func)(nil)
