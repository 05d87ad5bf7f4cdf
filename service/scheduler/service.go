// Package scheduler runs tasks with bounded concurrency in priority order.
// A completed task hands its successor back to the queue, so dependent steps
// form a chain of independent tasks.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/treemirror/metrics"
	"github.com/viant/treemirror/model/task"
	"github.com/viant/treemirror/progress"
	"github.com/viant/treemirror/tracing"
	"go.uber.org/zap"
)

type running struct {
	task      task.Task
	cancel    context.CancelFunc
	cancelled bool
}

// Service is a bounded priority task scheduler.
type Service struct {
	config    *Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	listeners []func(task.Info)
	tracker   *progress.Progress

	mux      sync.Mutex
	queue    []task.Task
	active   map[uint32]*running
	finished map[uint32]task.Info
	history  []uint32
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(options ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	ret := &Service{
		active:   make(map[uint32]*running),
		finished: make(map[uint32]task.Info),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.config == nil {
		ret.config = DefaultConfig()
	}
	if ret.config.MaxConcurrent < 1 {
		ret.config.MaxConcurrent = 1
	}
	if ret.logger == nil {
		ret.logger = zap.NewNop()
	}
	ret.tracker = progress.New("scheduler", nil)
	return ret
}

// Submit queues t and starts work when a slot is free. It returns the task id.
func (s *Service) Submit(t task.Task) (uint32, error) {
	ids, err := s.SubmitAll(t)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// SubmitAll queues every task before any of them is started, so the batch is
// started in priority order. Nothing is queued when a task is rejected.
func (s *Service) SubmitAll(tasks ...task.Task) ([]uint32, error) {
	ids := make([]uint32, len(tasks))
	seen := make(map[uint32]bool, len(tasks))
	s.mux.Lock()
	if s.closed {
		s.mux.Unlock()
		return nil, ErrClosed
	}
	for i, t := range tasks {
		if t == nil {
			s.mux.Unlock()
			return nil, ErrNilTask
		}
		id := t.Serial()
		if id == 0 {
			s.mux.Unlock()
			return nil, ErrNotLive
		}
		if seen[id] || s.tracked(id) {
			s.mux.Unlock()
			return nil, fmt.Errorf("%w: %d", ErrDuplicate, id)
		}
		seen[id] = true
		ids[i] = id
	}
	for _, t := range tasks {
		delete(s.finished, t.Serial())
		t.SetStatus(task.Pending, nil)
		s.enqueue(t)
	}
	s.mux.Unlock()

	s.tracker.Update(progress.Delta{Total: len(tasks), Pending: len(tasks)})
	for _, t := range tasks {
		s.logger.Debug("task submitted", zap.Uint32("id", t.Serial()), zap.String("kind", t.Kind()), zap.Int("priority", t.Priority()))
		t.Notify()
	}
	s.schedule()
	return ids, nil
}

// Cancel fails a queued or running task. A queued task is released at once;
// a running one is aborted and released when its Execute returns.
func (s *Service) Cancel(id uint32) error {
	s.mux.Lock()
	if r, ok := s.active[id]; ok {
		delete(s.active, id)
		r.cancelled = true
		r.task.SetStatus(task.Failed, task.ErrCancelled)
		s.observe()
		s.mux.Unlock()

		r.task.Cancel()
		r.cancel()
		s.tracker.Update(progress.Delta{Running: -1, Cancelled: 1})
		s.finish(r.task)
		s.schedule()
		return nil
	}
	for i, candidate := range s.queue {
		if candidate.Serial() != id {
			continue
		}
		s.queue = append(s.queue[:i], s.queue[i+1:]...)
		candidate.SetStatus(task.Failed, task.ErrCancelled)
		s.observe()
		s.mux.Unlock()

		candidate.Cancel()
		s.tracker.Update(progress.Delta{Pending: -1, Cancelled: 1})
		s.finish(candidate)
		s.release(candidate)
		return nil
	}
	s.mux.Unlock()
	return fmt.Errorf("%w: %d", ErrNotFound, id)
}

// Status returns the info of a tracked or recently finished task.
func (s *Service) Status(id uint32) (task.Info, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if r, ok := s.active[id]; ok {
		return r.task.Info(), true
	}
	for _, candidate := range s.queue {
		if candidate.Serial() == id {
			return candidate.Info(), true
		}
	}
	info, ok := s.finished[id]
	return info, ok
}

// Progress returns the progress of a tracked or recently finished task.
func (s *Service) Progress(id uint32) (int, bool) {
	info, ok := s.Status(id)
	return info.Progress, ok
}

// Active returns running tasks.
func (s *Service) Active() []task.Info {
	s.mux.Lock()
	defer s.mux.Unlock()
	ret := make([]task.Info, 0, len(s.active))
	for _, r := range s.active {
		ret = append(ret, r.task.Info())
	}
	return ret
}

// Queued returns pending tasks in start order.
func (s *Service) Queued() []task.Info {
	s.mux.Lock()
	defer s.mux.Unlock()
	ret := make([]task.Info, 0, len(s.queue))
	for _, candidate := range s.queue {
		ret = append(ret, candidate.Info())
	}
	return ret
}

// Snapshot returns aggregated counters.
func (s *Service) Snapshot() progress.Progress {
	return s.tracker.Snapshot()
}

// Watch replaces the aggregate progress callback; nil disables it. fn runs on
// the goroutine changing the counters.
func (s *Service) Watch(fn func(progress.Progress)) {
	s.tracker.OnChange(fn)
}

// Shutdown rejects new tasks, cancels queued and running ones and waits for
// running Execute calls to return or ctx to be done.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mux.Lock()
	s.closed = true
	var ids []uint32
	for _, candidate := range s.queue {
		ids = append(ids, candidate.Serial())
	}
	for id := range s.active {
		ids = append(ids, id)
	}
	s.mux.Unlock()
	for _, id := range ids {
		if err := s.Cancel(id); err != nil && !errors.Is(err, ErrNotFound) {
			s.logger.Warn("failed to cancel task on shutdown", zap.Uint32("id", id), zap.Error(err))
		}
	}
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue inserts t after every queued task of equal or higher priority.
func (s *Service) enqueue(t task.Task) {
	priority := t.Priority()
	i := len(s.queue)
	for i > 0 && s.queue[i-1].Priority() < priority {
		i--
	}
	s.queue = append(s.queue, nil)
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = t
	s.observe()
}

func (s *Service) tracked(id uint32) bool {
	if _, ok := s.active[id]; ok {
		return true
	}
	for _, candidate := range s.queue {
		if candidate.Serial() == id {
			return true
		}
	}
	return false
}

// schedule starts queued tasks while slots are free.
func (s *Service) schedule() {
	var started []*running
	s.mux.Lock()
	for !s.closed && len(s.active) < s.config.MaxConcurrent && len(s.queue) > 0 {
		t := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		ctx, cancel := context.WithCancel(s.ctx)
		r := &running{task: t, cancel: cancel}
		s.active[t.Serial()] = r
		t.SetStatus(task.Running, nil)
		s.wg.Add(1)
		started = append(started, r)
		go s.execute(ctx, r)
	}
	s.observe()
	s.mux.Unlock()
	if len(started) > 0 {
		s.tracker.Update(progress.Delta{Pending: -len(started), Running: len(started)})
	}
}

func (s *Service) execute(ctx context.Context, r *running) {
	defer s.wg.Done()
	defer r.cancel()
	t := r.task
	t.Notify()
	ctx, span := tracing.StartSpan(ctx, "scheduler."+t.Kind(), "INTERNAL")
	span.WithAttributes(map[string]string{"task.id": fmt.Sprint(t.Serial())})
	err := s.invoke(ctx, t)
	tracing.EndSpan(span, err)
	s.complete(r, err)
}

func (s *Service) invoke(ctx context.Context, t task.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return t.Execute(ctx)
}

// complete records the outcome, notifies, releases the task and submits its
// successor on success. A cancelled task is only released.
func (s *Service) complete(r *running, err error) {
	t := r.task
	s.mux.Lock()
	if r.cancelled {
		s.mux.Unlock()
		s.release(t)
		s.schedule()
		return
	}
	delete(s.active, t.Serial())
	status := task.Completed
	if err != nil {
		status = task.Failed
	}
	t.SetStatus(status, err)
	s.observe()
	s.mux.Unlock()

	delta := progress.Delta{Running: -1, Completed: 1}
	if err != nil {
		delta = progress.Delta{Running: -1, Failed: 1}
		s.logger.Warn("task failed", zap.Uint32("id", t.Serial()), zap.String("kind", t.Kind()), zap.Error(err))
	}
	s.tracker.Update(delta)
	if status == task.Completed {
		t.SetProgress(100)
	}
	next := t.Next()
	s.finish(t)
	if status == task.Completed && next != nil {
		t.SetNext(nil)
		if _, subErr := s.Submit(next); subErr != nil {
			s.logger.Warn("failed to submit successor", zap.Uint32("id", next.Serial()), zap.Error(subErr))
			s.release(next)
		}
	}
	s.release(t)
	s.schedule()
}

// finish notifies listeners with the terminal info and records it.
func (s *Service) finish(t task.Task) {
	t.Notify()
	info := t.Info()
	s.metrics.TaskDone(info.Kind, string(info.Status))
	s.mux.Lock()
	s.remember(info)
	listeners := s.listeners
	s.mux.Unlock()
	for _, listener := range listeners {
		listener(info)
	}
}

func (s *Service) remember(info task.Info) {
	if s.config.History == 0 {
		return
	}
	if _, ok := s.finished[info.ID]; !ok {
		s.history = append(s.history, info.ID)
	}
	s.finished[info.ID] = info
	for len(s.history) > s.config.History {
		delete(s.finished, s.history[0])
		s.history = s.history[1:]
	}
}

// release returns t together with any successor that will never run.
func (s *Service) release(t task.Task) {
	if err := task.ReleaseChain(t); err != nil {
		s.logger.Warn("failed to release task", zap.Error(err))
	}
}

func (s *Service) observe() {
	s.metrics.ObserveScheduler(len(s.queue), len(s.active))
}
