package scheduler

import "errors"

var (
	ErrNilTask = errors.New("scheduler: nil task")

	// ErrNotLive rejects tasks that were not acquired from a pool.
	ErrNotLive = errors.New("scheduler: task not live")

	ErrDuplicate = errors.New("scheduler: task already tracked")
	ErrNotFound  = errors.New("scheduler: task not found")
	ErrClosed    = errors.New("scheduler: closed")
	// ErrPanic wraps a panic recovered from Execute.
	ErrPanic = errors.New("scheduler: task panicked")
)
