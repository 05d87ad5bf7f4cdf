package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForWaiters(t *testing.T, l *Lock, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(l.Waiters()) == n }, time.Second, time.Millisecond)
}

func TestLock_PriorityOrder(t *testing.T) {
	var testCases = []struct {
		description string
		arrivals    []Waiter
		expect      []string
	}{
		{
			description: "higher priority first regardless of arrival",
			arrivals:    []Waiter{{Owner: "w2", Priority: 1}, {Owner: "w1", Priority: 5}},
			expect:      []string{"w1", "w2"},
		},
		{
			description: "equal priority keeps arrival order",
			arrivals:    []Waiter{{Owner: "a"}, {Owner: "b"}, {Owner: "c"}},
			expect:      []string{"a", "b", "c"},
		},
		{
			description: "mixed",
			arrivals:    []Waiter{{Owner: "low", Priority: 0}, {Owner: "mid1", Priority: 3}, {Owner: "high", Priority: 9}, {Owner: "mid2", Priority: 3}},
			expect:      []string{"high", "mid1", "mid2", "low"},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			l := New()
			ctx := context.Background()
			require.NoError(t, l.Lock(ctx, "holder", 0))

			var mux sync.Mutex
			var order []string
			wg := sync.WaitGroup{}
			for i, w := range testCase.arrivals {
				wg.Add(1)
				go func(w Waiter) {
					defer wg.Done()
					if err := l.Lock(ctx, w.Owner, w.Priority); err != nil {
						t.Errorf("lock %v: %v", w.Owner, err)
						return
					}
					mux.Lock()
					order = append(order, w.Owner)
					mux.Unlock()
					_ = l.Unlock(w.Owner)
				}(w)
				waitForWaiters(t, l, i+1)
			}
			require.NoError(t, l.Unlock("holder"))
			wg.Wait()
			assert.Equal(t, testCase.expect, order)
			assert.False(t, l.Locked())
		})
	}
}

func TestLock_Reentrant(t *testing.T) {
	l := New()
	ctx := context.Background()
	const depth = 3
	for i := 0; i < depth; i++ {
		require.NoError(t, l.Lock(ctx, "a", 0))
	}
	assert.Equal(t, depth, l.Count())
	assert.False(t, l.TryLock("b"))
	for i := 0; i < depth-1; i++ {
		require.NoError(t, l.Unlock("a"))
		assert.True(t, l.Locked())
		assert.False(t, l.TryLock("b"))
	}
	require.NoError(t, l.Unlock("a"))
	assert.False(t, l.Locked())
	assert.True(t, l.TryLock("b"))
	assert.Equal(t, "b", l.Owner())
}

func TestLock_UnlockByNonOwner(t *testing.T) {
	l := New()
	err := l.Unlock("nobody")
	assert.True(t, errors.Is(err, ErrNotOwner))

	require.NoError(t, l.Lock(context.Background(), "a", 0))
	err = l.Unlock("b")
	assert.True(t, errors.Is(err, ErrNotOwner))
	assert.Equal(t, "a", l.Owner())
	assert.Equal(t, 1, l.Count())
}

func TestLock_ContextCancelled(t *testing.T) {
	l := New()
	require.NoError(t, l.Lock(context.Background(), "a", 0))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Lock(ctx, "b", 1)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Empty(t, l.Waiters())

	require.NoError(t, l.Unlock("a"))
	assert.False(t, l.Locked())
}

func TestLock_SameOwnerWaitersGrantedTogether(t *testing.T) {
	l := New()
	ctx := context.Background()
	require.NoError(t, l.Lock(ctx, "a", 0))

	wg := sync.WaitGroup{}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Lock(ctx, "b", 0))
		}()
	}
	waitForWaiters(t, l, 2)
	require.NoError(t, l.Unlock("a"))
	wg.Wait()
	assert.Equal(t, "b", l.Owner())
	assert.Equal(t, 2, l.Count())
}

func TestLock_Reset(t *testing.T) {
	l := New()
	require.NoError(t, l.Lock(context.Background(), "a", 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Lock(ctx, "b", 0) }()
	waitForWaiters(t, l, 1)

	l.Reset()
	assert.False(t, l.Locked())
	assert.Empty(t, l.Waiters())
	assert.Equal(t, 0, l.Count())

	select {
	case <-done:
		t.Fatal("abandoned waiter must not be resumed")
	case <-time.After(20 * time.Millisecond):
	}
	cancel()
	assert.True(t, errors.Is(<-done, context.Canceled))
}
