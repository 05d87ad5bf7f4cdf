// Package lock provides an owner-reentrant mutex whose waiters are granted
// ownership by descending priority, ties broken by arrival order.
//
// Ownership is tied to an explicit owner token rather than a goroutine, so a
// logical operation spread over many calls (or goroutines) holds the lock once
// under its correlation id.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/treemirror/metrics"
	"go.uber.org/zap"
)

// ErrNotOwner is returned when unlocking a lock held by someone else.
var ErrNotOwner = errors.New("lock: not held by owner")

// Waiter describes a queued acquisition.
type Waiter struct {
	Owner    string `json:"owner" yaml:"owner"`
	Priority int    `json:"priority" yaml:"priority"`
}

type waiter struct {
	Waiter
	ready   chan struct{}
	granted bool
}

// Lock is a priority, owner-reentrant lock. The zero value is not usable; use New.
type Lock struct {
	mux     sync.Mutex
	locked  bool
	owner   string
	count   int
	waiters []*waiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Lock.
type Option func(l *Lock)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Lock) {
		l.logger = logger
	}
}

// WithMetrics publishes the waiter count.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Lock) {
		l.metrics = m
	}
}

// New creates a lock.
func New(options ...Option) *Lock {
	ret := &Lock{logger: zap.NewNop()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Lock acquires the lock for owner, blocking while another owner holds it.
// A cancelled ctx withdraws the request and returns ctx.Err().
func (l *Lock) Lock(ctx context.Context, owner string, priority int) error {
	l.mux.Lock()
	if !l.locked || l.owner == owner {
		l.locked = true
		l.owner = owner
		l.count++
		l.mux.Unlock()
		return nil
	}
	w := &waiter{Waiter: Waiter{Owner: owner, Priority: priority}, ready: make(chan struct{})}
	l.enqueue(w)
	l.mux.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
	}

	l.mux.Lock()
	if !w.granted {
		l.dequeue(w)
		l.mux.Unlock()
		return ctx.Err()
	}
	l.mux.Unlock()
	// ownership arrived together with cancellation; pass it on
	if err := l.Unlock(owner); err != nil {
		return fmt.Errorf("failed to return cancelled lock grant: %w", err)
	}
	return ctx.Err()
}

// TryLock acquires the lock only if it is free or already held by owner.
func (l *Lock) TryLock(owner string) bool {
	l.mux.Lock()
	defer l.mux.Unlock()
	if l.locked && l.owner != owner {
		return false
	}
	l.locked = true
	l.owner = owner
	l.count++
	return true
}

// Unlock releases one hold of owner. The last hold hands the lock to the
// highest priority waiter.
func (l *Lock) Unlock(owner string) error {
	l.mux.Lock()
	defer l.mux.Unlock()
	if !l.locked || l.owner != owner {
		l.logger.Error("unlock by non-owner", zap.String("owner", owner), zap.String("holder", l.owner), zap.Int("count", l.count))
		return fmt.Errorf("%w: %q (held by %q)", ErrNotOwner, owner, l.owner)
	}
	l.count--
	if l.count > 0 {
		return nil
	}
	l.handoff()
	return nil
}

// Reset clears all state. Pending waiters are abandoned and never resumed.
func (l *Lock) Reset() {
	l.mux.Lock()
	defer l.mux.Unlock()
	if len(l.waiters) > 0 {
		l.logger.Warn("lock reset abandons waiters", zap.Int("waiters", len(l.waiters)))
	}
	l.locked = false
	l.owner = ""
	l.count = 0
	l.waiters = nil
	l.observe()
}

// Locked reports whether the lock is held.
func (l *Lock) Locked() bool {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.locked
}

// Owner returns the current holder, empty when unlocked.
func (l *Lock) Owner() string {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.owner
}

// Count returns the reentrancy depth of the current holder.
func (l *Lock) Count() int {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.count
}

// Waiters returns queued requests in grant order.
func (l *Lock) Waiters() []Waiter {
	l.mux.Lock()
	defer l.mux.Unlock()
	ret := make([]Waiter, len(l.waiters))
	for i, w := range l.waiters {
		ret[i] = w.Waiter
	}
	return ret
}

// enqueue inserts w after every waiter of equal or higher priority.
func (l *Lock) enqueue(w *waiter) {
	i := len(l.waiters)
	for i > 0 && l.waiters[i-1].Priority < w.Priority {
		i--
	}
	l.waiters = append(l.waiters, nil)
	copy(l.waiters[i+1:], l.waiters[i:])
	l.waiters[i] = w
	l.observe()
}

func (l *Lock) dequeue(w *waiter) {
	for i, candidate := range l.waiters {
		if candidate == w {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			break
		}
	}
	l.observe()
}

// handoff grants the head waiter, together with any other waiter queued by
// the same owner, or unlocks.
func (l *Lock) handoff() {
	if len(l.waiters) == 0 {
		l.locked = false
		l.owner = ""
		l.count = 0
		l.observe()
		return
	}
	next := l.waiters[0].Owner
	l.owner = next
	l.count = 0
	remaining := l.waiters[:0]
	for _, w := range l.waiters {
		if w.Owner != next {
			remaining = append(remaining, w)
			continue
		}
		l.count++
		w.granted = true
		close(w.ready)
	}
	l.waiters = remaining
	l.observe()
}

func (l *Lock) observe() {
	l.metrics.ObserveLockWaiters(len(l.waiters))
}
