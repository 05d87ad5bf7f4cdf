package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/treemirror/runtime/pool"
)

func newFunc(t *testing.T, registry *pool.Registry, kind string, priority int) *Func {
	t.Helper()
	ret, err := pool.Of[*Func](registry, NewFunc).Acquire(0, 0, kind, priority, func(ctx context.Context, t *Func) error {
		t.SetProgress(100)
		return nil
	})
	require.NoError(t, err)
	return ret
}

func TestBase_NotifyOncePerStatus(t *testing.T) {
	registry := pool.NewRegistry()
	task := newFunc(t, registry, "noop", 2)
	var seen []Status
	task.OnStatus(func(info Info) { seen = append(seen, info.Status) })

	task.Notify()
	task.Notify()
	task.SetStatus(Running, nil)
	task.Notify()
	task.SetStatus(Failed, ErrCancelled)
	task.Notify()
	task.Notify()

	assert.Equal(t, []Status{Pending, Running, Failed}, seen)
	info := task.Info()
	assert.Equal(t, task.Serial(), info.ID)
	assert.Equal(t, "noop", info.Kind)
	assert.Equal(t, 2, info.Priority)
	assert.Equal(t, ErrCancelled.Error(), info.Error)
	assert.True(t, info.Status.IsTerminal())
}

func TestBase_Progress(t *testing.T) {
	registry := pool.NewRegistry()
	task := newFunc(t, registry, "progress", 0)
	var seen []int
	task.OnProgress(func(info Info) { seen = append(seen, info.Progress) })

	for _, percent := range []int{-5, 0, 40, 40, 250} {
		task.SetProgress(percent)
	}
	assert.Equal(t, []int{40, 100}, seen)
	assert.Equal(t, 100, task.Progress())
}

func TestFunc_Execute(t *testing.T) {
	registry := pool.NewRegistry()
	task := newFunc(t, registry, "run", 0)
	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, 100, task.Progress())

	bare, err := pool.Of[*Func](registry, NewFunc).Acquire(0, 0, "bare", 0)
	require.NoError(t, err)
	assert.Error(t, bare.Execute(context.Background()))
}

func TestReleaseChain(t *testing.T) {
	registry := pool.NewRegistry()
	first := newFunc(t, registry, "first", 0)
	second := newFunc(t, registry, "second", 0)
	first.SetNext(second)
	first.SetInput([]byte("data"))
	assert.Equal(t, second.Serial(), first.Info().Next)

	require.NoError(t, ReleaseChain(first))
	registry.Tick()
	assert.False(t, first.IsLive())
	assert.False(t, second.IsLive())
	assert.Nil(t, first.Input())
	assert.Empty(t, first.Kind())
	assert.Error(t, ReleaseChain(second))
}
