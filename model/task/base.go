package task

import (
	"sync"

	"github.com/viant/treemirror/runtime/pool"
)

// Base implements the bookkeeping part of Task. Concrete tasks call Init from
// OnAcquire and Reset from OnRelease.
type Base struct {
	pool.Object

	mux        sync.RWMutex
	notifyMux  sync.Mutex
	kind       string
	priority   int
	status     Status
	notified   Status
	progress   int
	err        error
	next       Task
	input      []byte
	onStatus   []func(Info)
	onProgress []func(Info)
	abort      func()
}

// Init prepares a freshly acquired task.
func (b *Base) Init(kind string, priority int) {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.kind = kind
	b.priority = priority
	b.status = Pending
	b.notified = ""
	b.progress = 0
	b.err = nil
}

// Reset clears everything before the task returns to its pool.
func (b *Base) Reset() {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.kind = ""
	b.priority = 0
	b.status = ""
	b.notified = ""
	b.progress = 0
	b.err = nil
	b.next = nil
	b.input = nil
	b.onStatus = nil
	b.onProgress = nil
	b.abort = nil
}

func (b *Base) Kind() string {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.kind
}

func (b *Base) Priority() int {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.priority
}

func (b *Base) Status() Status {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.status
}

func (b *Base) SetStatus(status Status, err error) {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.status = status
	b.err = err
}

// Err returns the failure cause, if any.
func (b *Base) Err() error {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.err
}

func (b *Base) Progress() int {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.progress
}

// SetProgress clamps percent to [0, 100] and notifies progress listeners on
// change.
func (b *Base) SetProgress(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	b.mux.Lock()
	if b.progress == percent {
		b.mux.Unlock()
		return
	}
	b.progress = percent
	info := b.info()
	listeners := append([]func(Info){}, b.onProgress...)
	b.mux.Unlock()
	for _, listener := range listeners {
		listener(info)
	}
}

func (b *Base) Next() Task {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.next
}

func (b *Base) SetNext(next Task) {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.next = next
}

func (b *Base) Input() []byte {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.input
}

func (b *Base) SetInput(data []byte) {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.input = data
}

// OnStatus registers a status listener.
func (b *Base) OnStatus(fn func(Info)) {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.onStatus = append(b.onStatus, fn)
}

// OnProgress registers a progress listener.
func (b *Base) OnProgress(fn func(Info)) {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.onProgress = append(b.onProgress, fn)
}

// SetAbort installs the function Cancel invokes.
func (b *Base) SetAbort(abort func()) {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.abort = abort
}

func (b *Base) Cancel() {
	b.mux.RLock()
	abort := b.abort
	b.mux.RUnlock()
	if abort != nil {
		abort()
	}
}

func (b *Base) Info() Info {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.info()
}

func (b *Base) Notify() {
	b.notifyMux.Lock()
	defer b.notifyMux.Unlock()
	b.mux.Lock()
	if b.status == b.notified {
		b.mux.Unlock()
		return
	}
	b.notified = b.status
	info := b.info()
	listeners := append([]func(Info){}, b.onStatus...)
	b.mux.Unlock()
	for _, listener := range listeners {
		listener(info)
	}
}

func (b *Base) info() Info {
	ret := Info{
		ID:       b.Serial(),
		Kind:     b.kind,
		Priority: b.priority,
		Status:   b.status,
		Progress: b.progress,
	}
	if b.err != nil {
		ret.Error = b.err.Error()
	}
	if b.next != nil {
		ret.Next = b.next.Serial()
	}
	return ret
}
