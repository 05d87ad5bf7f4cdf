package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/treemirror/service/messaging"
)

type notice struct {
	Root  string
	Files int
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := NewQueue[notice](DefaultConfig())
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &notice{Root: "/", Files: 3}))
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, notice{Root: "/", Files: 3}, *message.T())

	assert.NoError(t, message.Ack())
	assert.ErrorIs(t, message.Ack(), messaging.ErrProcessed)
	assert.ErrorIs(t, message.Nack(nil), messaging.ErrProcessed)
}

func TestQueue_RetriesThenDeadLetter(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 2
	config.RetryDelay = 5 * time.Millisecond
	queue := NewQueue[notice](config)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, queue.Publish(ctx, &notice{Files: 1}))
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err, "attempt %d", attempt)
		require.NoError(t, message.Nack(fmt.Errorf("attempt %d", attempt)))
	}
	assert.Eventually(t, func() bool { return queue.DLQSize() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_DropOldest(t *testing.T) {
	config := DefaultConfig()
	config.QueueBuffer = 2
	config.DropOldest = true
	queue := NewQueue[notice](config)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, queue.Publish(ctx, &notice{Files: i}))
	}
	assert.Equal(t, 2, queue.Size())
	assert.Equal(t, 3, queue.Dropped())

	first, err := queue.Consume(ctx)
	require.NoError(t, err)
	second, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, first.T().Files)
	assert.Equal(t, 5, second.T().Files)
}

func TestQueue_Concurrency(t *testing.T) {
	queue := NewQueue[notice](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const producers, perProducer = 8, 25
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, queue.Publish(ctx, &notice{Files: p*perProducer + i}))
			}
		}(p)
	}

	seen := make(map[int]bool)
	for len(seen) < producers*perProducer {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		require.NoError(t, message.Ack())
		seen[message.T().Files] = true
	}
	wg.Wait()
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_ContextCancellation(t *testing.T) {
	queue := NewQueue[notice](DefaultConfig())
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, queue.Publish(cancelled, &notice{}), context.Canceled)

	timeout, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	_, err := queue.Consume(timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, queue.Publish(context.Background(), &notice{Files: 7}))
	message, err := queue.Consume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, message.T().Files)
}
