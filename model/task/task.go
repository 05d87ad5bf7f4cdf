// Package task defines schedulable units of work. Tasks are pooled objects:
// their serial is the task id and they return to their pool once the
// scheduler is done with them.
package task

import (
	"context"
	"errors"

	"github.com/viant/treemirror/runtime/pool"
)

// ErrCancelled marks a task failed by cancellation.
var ErrCancelled = errors.New("task: cancelled")

// Info is a point in time copy of a task.
type Info struct {
	ID       uint32 `json:"id" yaml:"id"`
	Kind     string `json:"kind" yaml:"kind"`
	Priority int    `json:"priority" yaml:"priority"`
	Status   Status `json:"status" yaml:"status"`
	Progress int    `json:"progress" yaml:"progress"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Next     uint32 `json:"next,omitempty" yaml:"next,omitempty"`
}

// Task is the scheduler contract. Embed Base for everything except Execute.
type Task interface {
	pool.Pooled
	Kind() string
	Priority() int
	Status() Status
	// SetStatus changes state without notifying listeners.
	SetStatus(status Status, err error)
	Progress() int
	SetProgress(percent int)
	// Next returns the successor submitted after successful completion.
	Next() Task
	SetNext(next Task)
	Input() []byte
	SetInput(data []byte)
	Info() Info
	// Notify delivers the current status to status listeners once per change.
	Notify()
	// Execute performs the work; it should return promptly once ctx is done.
	Execute(ctx context.Context) error
	// Cancel aborts external effects owned by the task.
	Cancel()
	Release() error
}

// ReleaseChain releases t and every successor linked from it.
func ReleaseChain(t Task) error {
	var errs []error
	for t != nil {
		next := t.Next()
		if err := t.Release(); err != nil {
			errs = append(errs, err)
		}
		t = next
	}
	return errors.Join(errs...)
}
