// Package event delivers typed notifications through in-memory queues, one
// topic per payload type.
package event

import (
	"context"
	"reflect"
	"sync"

	"github.com/viant/treemirror/service/messaging"
	"github.com/viant/treemirror/service/messaging/memory"
	"go.uber.org/zap"
)

type stopper interface{ Stop() }

type Service struct {
	publishers        map[reflect.Type]any
	listeners         map[reflect.Type]stopper
	mux               *sync.RWMutex
	memNewQueueConfig func(name string) memory.Config
	logger            *zap.Logger
	ctx               context.Context
	cancel            context.CancelFunc
}

func New(opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	ret := &Service{
		publishers: make(map[reflect.Type]any),
		listeners:  make(map[reflect.Type]stopper),
		mux:        &sync.RWMutex{},
		logger:     zap.NewNop(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.memNewQueueConfig == nil {
		ret.memNewQueueConfig = func(string) memory.Config {
			config := memory.DefaultConfig()
			config.DropOldest = true
			return config
		}
	}
	return ret
}

func QueueOf[T any](s *Service, name string) messaging.Queue[T] {
	return memory.NewQueue[T](s.memNewQueueConfig(name))
}

func keyOf[T any]() reflect.Type {
	var t T
	rType := reflect.TypeOf(t)
	if rType == nil {
		rType = reflect.TypeOf((*T)(nil)).Elem()
	}
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// PublisherOf returns a publisher for the provided type
func PublisherOf[T any](s *Service) *Publisher[T] {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.publishers[key]
	s.mux.RUnlock()
	if ok {
		return ret.(*Publisher[T])
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok = s.publishers[key]; ok {
		return ret.(*Publisher[T])
	}
	publisher := NewPublisher[T](QueueOf[Event[T]](s, key.String()))
	s.publishers[key] = publisher
	return publisher
}

// Subscribe registers handler for events of type T and returns a function
// removing it. Handlers run on the topic listener goroutine.
func Subscribe[T any](s *Service, handler func(*Event[T])) func() {
	publisher := PublisherOf[T](s)
	key := keyOf[T]()
	s.mux.Lock()
	existing, ok := s.listeners[key]
	if !ok {
		listener := NewListener[T](s.ctx, publisher, s.logger)
		listener.Start()
		s.listeners[key] = listener
		existing = listener
	}
	s.mux.Unlock()
	return existing.(*Listener[T]).Add(handler)
}

// Close stops all listeners.
func (s *Service) Close() {
	s.cancel()
	s.mux.Lock()
	listeners := s.listeners
	s.listeners = make(map[reflect.Type]stopper)
	s.mux.Unlock()
	for _, listener := range listeners {
		listener.Stop()
	}
}
