package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Listener drains a publisher queue on its own goroutine and fans each event
// out to the registered handlers, so handlers never run on the publishing
// goroutine.
type Listener[T any] struct {
	publisher *Publisher[T]
	logger    *zap.Logger

	mux      sync.RWMutex
	handlers map[uint64]func(*Event[T])
	seq      uint64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewListener[T any](ctx context.Context, publisher *Publisher[T], logger *zap.Logger) *Listener[T] {
	ctx, cancel := context.WithCancel(ctx)
	return &Listener[T]{
		publisher: publisher,
		logger:    logger,
		handlers:  make(map[uint64]func(*Event[T])),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Add registers handler and returns a function removing it.
func (l *Listener[T]) Add(handler func(*Event[T])) func() {
	l.mux.Lock()
	l.seq++
	id := l.seq
	l.handlers[id] = handler
	l.mux.Unlock()
	return func() {
		l.mux.Lock()
		delete(l.handlers, id)
		l.mux.Unlock()
	}
}

// Stop ends the consume loop and waits for it to exit.
func (l *Listener[T]) Stop() {
	l.cancel()
	<-l.done
}

// Start runs the consume loop. A message is acknowledged once every handler
// returned; a panicking handler nacks it so the queue retries the delivery.
func (l *Listener[T]) Start() {
	go func() {
		defer close(l.done)
		for {
			msg, err := l.publisher.Consume(l.ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || l.ctx.Err() != nil {
					return
				}
				l.logger.Warn("failed to consume event", zap.Error(err))
				continue
			}
			if msg == nil {
				continue
			}
			if err = l.dispatch(msg.T()); err != nil {
				err = msg.Nack(err)
			} else {
				err = msg.Ack()
			}
			if err != nil {
				l.logger.Warn("failed to settle event", zap.Error(err))
			}
		}
	}()
}

func (l *Listener[T]) dispatch(event *Event[T]) error {
	l.mux.RLock()
	handlers := make([]func(*Event[T]), 0, len(l.handlers))
	for _, handler := range l.handlers {
		handlers = append(handlers, handler)
	}
	l.mux.RUnlock()
	var errs []error
	for _, handler := range handlers {
		if err := l.invoke(handler, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Listener[T]) invoke(handler func(*Event[T]), event *Event[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panicked: %v", r)
			l.logger.Error("event handler panicked", zap.Any("panic", r))
		}
	}()
	handler(event)
	return nil
}
