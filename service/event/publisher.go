package event

import (
	"context"
	"time"

	"github.com/viant/treemirror/service/messaging"
)

// QueueStats describes the backlog of one topic.
type QueueStats struct {
	Pending     int `json:"pending" yaml:"pending"`
	Dropped     int `json:"dropped" yaml:"dropped"`
	DeadLetters int `json:"deadLetters" yaml:"deadLetters"`
}

type inspector interface {
	Size() int
	Dropped() int
	DLQSize() int
}

type Publisher[T any] struct {
	queue messaging.Queue[Event[T]]
}

func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{
		queue: queue,
	}
}

func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	event.CreatedAt = time.Now()
	return p.queue.Publish(ctx, event)
}

// Consume returns the next message; the caller acknowledges it.
func (p *Publisher[T]) Consume(ctx context.Context) (messaging.Message[Event[T]], error) {
	return p.queue.Consume(ctx)
}

// Stats reports the queue backlog when the queue exposes it.
func (p *Publisher[T]) Stats() QueueStats {
	q, ok := p.queue.(inspector)
	if !ok {
		return QueueStats{}
	}
	return QueueStats{Pending: q.Size(), Dropped: q.Dropped(), DeadLetters: q.DLQSize()}
}
