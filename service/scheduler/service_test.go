package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/treemirror/model/task"
	"github.com/viant/treemirror/progress"
	"github.com/viant/treemirror/runtime/pool"
)

type recorder struct {
	mux   sync.Mutex
	log   []string
	infos []task.Info
	done  chan task.Info
}

func newRecorder() *recorder {
	return &recorder{done: make(chan task.Info, 32)}
}

func (r *recorder) add(entry string) {
	r.mux.Lock()
	r.log = append(r.log, entry)
	r.mux.Unlock()
}

func (r *recorder) listener(info task.Info) {
	r.mux.Lock()
	r.infos = append(r.infos, info)
	r.log = append(r.log, info.Kind+" "+string(info.Status))
	r.mux.Unlock()
	r.done <- info
}

func (r *recorder) entries() []string {
	r.mux.Lock()
	defer r.mux.Unlock()
	return append([]string(nil), r.log...)
}

func (r *recorder) wait(t *testing.T) task.Info {
	t.Helper()
	select {
	case info := <-r.done:
		return info
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task")
	}
	return task.Info{}
}

func newTask(t *testing.T, registry *pool.Registry, kind string, priority int, fn func(ctx context.Context, t *task.Func) error) *task.Func {
	t.Helper()
	ret, err := pool.Of[*task.Func](registry, task.NewFunc).Acquire(0, 0, kind, priority, fn)
	require.NoError(t, err)
	return ret
}

func TestService_PriorityOrder(t *testing.T) {
	registry := pool.NewRegistry()
	rec := newRecorder()
	srv := New(WithConfig(&Config{MaxConcurrent: 2, History: 10}), WithListener(rec.listener))
	defer srv.Shutdown(context.Background())

	started := make(chan string, 3)
	gates := map[string]chan struct{}{"p1": make(chan struct{}), "p5": make(chan struct{}), "p3": make(chan struct{})}
	blocking := func(ctx context.Context, t *task.Func) error {
		started <- t.Kind()
		select {
		case <-gates[t.Kind()]:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p1 := newTask(t, registry, "p1", 1, blocking)
	p5 := newTask(t, registry, "p5", 5, blocking)
	p3 := newTask(t, registry, "p3", 3, blocking)
	ids, err := srv.SubmitAll(p1, p5, p3)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	first := []string{<-started, <-started}
	assert.ElementsMatch(t, []string{"p5", "p3"}, first)
	queued := srv.Queued()
	require.Len(t, queued, 1)
	assert.Equal(t, "p1", queued[0].Kind)
	info, ok := srv.Status(ids[0])
	require.True(t, ok)
	assert.Equal(t, task.Pending, info.Status)
	assert.Len(t, srv.Active(), 2)

	select {
	case kind := <-started:
		t.Fatalf("%v started while both slots were busy", kind)
	case <-time.After(30 * time.Millisecond):
	}

	close(gates["p5"])
	assert.Equal(t, "p5", rec.wait(t).Kind)
	assert.Equal(t, "p1", <-started)
	close(gates["p3"])
	close(gates["p1"])
	rec.wait(t)
	rec.wait(t)

	snapshot := srv.Snapshot()
	assert.Equal(t, 3, snapshot.TotalTasks)
	assert.Equal(t, 3, snapshot.CompletedTasks)
	assert.Equal(t, 0, snapshot.RunningTasks)
	assert.Equal(t, 0, snapshot.PendingTasks)
}

func TestService_Chaining(t *testing.T) {
	registry := pool.NewRegistry()
	rec := newRecorder()
	srv := New(WithListener(rec.listener))
	defer srv.Shutdown(context.Background())

	var received []byte
	second := newTask(t, registry, "extract", 0, func(ctx context.Context, t *task.Func) error {
		rec.add("extract start")
		received = t.Input()
		return nil
	})
	first := newTask(t, registry, "download", 0, func(ctx context.Context, t *task.Func) error {
		rec.add("download start")
		t.Next().SetInput([]byte("payload"))
		return nil
	})
	first.SetNext(second)
	secondID := second.Serial()

	_, err := srv.Submit(first)
	require.NoError(t, err)
	done := rec.wait(t)
	assert.Equal(t, task.Completed, done.Status)
	assert.Equal(t, 100, done.Progress, "completed tasks report full progress")
	last := rec.wait(t)
	assert.Equal(t, secondID, last.ID)
	assert.Equal(t, task.Completed, last.Status)

	assert.Equal(t, []string{"download start", "download completed", "extract start", "extract completed"}, rec.entries())
	assert.Equal(t, "payload", string(received))
	percent, ok := srv.Progress(secondID)
	assert.True(t, ok)
	assert.Equal(t, 0, percent)
	percent, _ = srv.Progress(rec.infos[0].ID)
	assert.Equal(t, 100, percent)
}

func TestService_FailureDoesNotStall(t *testing.T) {
	registry := pool.NewRegistry()
	rec := newRecorder()
	srv := New(WithConfig(&Config{MaxConcurrent: 1, History: 10}), WithListener(rec.listener))
	defer srv.Shutdown(context.Background())

	successorRan := false
	successor := newTask(t, registry, "successor", 0, func(ctx context.Context, t *task.Func) error {
		successorRan = true
		return nil
	})
	failing := newTask(t, registry, "failing", 3, func(ctx context.Context, t *task.Func) error {
		return errors.New("boom")
	})
	failing.SetNext(successor)
	panicking := newTask(t, registry, "panicking", 2, func(ctx context.Context, t *task.Func) error {
		panic("unexpected")
	})
	healthy := newTask(t, registry, "healthy", 1, func(ctx context.Context, t *task.Func) error {
		return nil
	})
	_, err := srv.SubmitAll(healthy, panicking, failing)
	require.NoError(t, err)

	results := map[string]task.Info{}
	for i := 0; i < 3; i++ {
		info := rec.wait(t)
		results[info.Kind] = info
	}
	assert.Equal(t, task.Failed, results["failing"].Status)
	assert.Equal(t, "boom", results["failing"].Error)
	assert.Equal(t, task.Failed, results["panicking"].Status)
	assert.Contains(t, results["panicking"].Error, ErrPanic.Error())
	assert.Equal(t, task.Completed, results["healthy"].Status)
	assert.False(t, successorRan)
	assert.Equal(t, []string{"failing failed", "panicking failed", "healthy completed"}, rec.entries())

	registry.Tick()
	assert.False(t, successor.IsLive(), "successor of a failed task is released")
	info, ok := srv.Status(results["failing"].ID)
	require.True(t, ok)
	assert.Equal(t, task.Failed, info.Status)
	assert.Equal(t, 2, srv.Snapshot().FailedTasks)
}

func TestService_CancelQueued(t *testing.T) {
	registry := pool.NewRegistry()
	rec := newRecorder()
	srv := New(WithConfig(&Config{MaxConcurrent: 1, History: 10}), WithListener(rec.listener))
	defer srv.Shutdown(context.Background())

	gate := make(chan struct{})
	blocker := newTask(t, registry, "blocker", 9, func(ctx context.Context, t *task.Func) error {
		<-gate
		return nil
	})
	ran := false
	queued := newTask(t, registry, "queued", 1, func(ctx context.Context, t *task.Func) error {
		ran = true
		return nil
	})
	var statuses []task.Status
	queued.OnStatus(func(info task.Info) { statuses = append(statuses, info.Status) })
	ids, err := srv.SubmitAll(blocker, queued)
	require.NoError(t, err)

	require.NoError(t, srv.Cancel(ids[1]))
	cancelled := rec.wait(t)
	assert.Equal(t, "queued", cancelled.Kind)
	assert.Equal(t, task.Failed, cancelled.Status)
	assert.Equal(t, task.ErrCancelled.Error(), cancelled.Error)
	assert.Equal(t, []task.Status{task.Pending, task.Failed}, statuses)
	assert.ErrorIs(t, srv.Cancel(ids[1]), ErrNotFound)

	close(gate)
	assert.Equal(t, "blocker", rec.wait(t).Kind)
	assert.False(t, ran)
	assert.Empty(t, srv.Queued())
	assert.Equal(t, 1, srv.Snapshot().CancelledTasks)
}

func TestService_CancelRunning(t *testing.T) {
	registry := pool.NewRegistry()
	rec := newRecorder()
	srv := New(WithListener(rec.listener))
	defer srv.Shutdown(context.Background())

	aborted := make(chan struct{})
	started := make(chan struct{})
	running := newTask(t, registry, "transfer", 0, func(ctx context.Context, t *task.Func) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	running.SetAbort(func() { close(aborted) })
	id, err := srv.Submit(running)
	require.NoError(t, err)
	<-started

	require.NoError(t, srv.Cancel(id))
	<-aborted
	info := rec.wait(t)
	assert.Equal(t, task.Failed, info.Status)
	assert.Equal(t, task.ErrCancelled.Error(), info.Error)
	assert.Empty(t, srv.Active())

	assert.Eventually(t, func() bool {
		registry.Tick()
		return !running.IsLive()
	}, time.Second, 5*time.Millisecond)
	select {
	case extra := <-rec.done:
		t.Fatalf("unexpected completion %+v", extra)
	default:
	}
}

func TestService_SubmitValidation(t *testing.T) {
	registry := pool.NewRegistry()
	srv := New(WithConfig(&Config{MaxConcurrent: 1}))

	_, err := srv.Submit(nil)
	assert.ErrorIs(t, err, ErrNilTask)
	_, err = srv.Submit(&task.Func{})
	assert.ErrorIs(t, err, ErrNotLive)

	gate := make(chan struct{})
	blocker := newTask(t, registry, "blocker", 0, func(ctx context.Context, t *task.Func) error {
		select {
		case <-gate:
		case <-ctx.Done():
		}
		return nil
	})
	_, err = srv.Submit(blocker)
	require.NoError(t, err)
	_, err = srv.Submit(blocker)
	assert.ErrorIs(t, err, ErrDuplicate)

	pending := newTask(t, registry, "pending", 0, func(ctx context.Context, t *task.Func) error { return nil })
	_, err = srv.Submit(pending)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	_, err = srv.Submit(newTask(t, registry, "late", 0, nil))
	assert.ErrorIs(t, err, ErrClosed)
	snapshot := srv.Snapshot()
	assert.Equal(t, 2, snapshot.CancelledTasks)
	assert.Equal(t, 0, snapshot.RunningTasks+snapshot.PendingTasks)
}

func TestService_Watch(t *testing.T) {
	registry := pool.NewRegistry()
	rec := newRecorder()
	srv := New(WithListener(rec.listener))
	defer srv.Shutdown(context.Background())

	var mux sync.Mutex
	var seen []progress.Progress
	srv.Watch(func(p progress.Progress) {
		mux.Lock()
		seen = append(seen, p)
		mux.Unlock()
	})
	_, err := srv.Submit(newTask(t, registry, "noop", 0, func(ctx context.Context, t *task.Func) error { return nil }))
	require.NoError(t, err)
	info := rec.wait(t)
	assert.Equal(t, 100, info.Progress)

	mux.Lock()
	require.NotEmpty(t, seen)
	last := seen[len(seen)-1]
	mux.Unlock()
	assert.Equal(t, 1, last.TotalTasks)
	assert.Equal(t, 1, last.CompletedTasks)
	assert.Equal(t, 100, last.Done())

	srv.Watch(nil)
	_, err = srv.Submit(newTask(t, registry, "noop", 0, func(ctx context.Context, t *task.Func) error { return nil }))
	require.NoError(t, err)
	rec.wait(t)
	mux.Lock()
	defer mux.Unlock()
	assert.Equal(t, last, seen[len(seen)-1])
}
