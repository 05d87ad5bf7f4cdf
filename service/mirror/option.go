package mirror

import (
	"github.com/viant/treemirror/metrics"
	"github.com/viant/treemirror/runtime/lock"
	"github.com/viant/treemirror/runtime/pool"
	"github.com/viant/treemirror/service/dao"
	"github.com/viant/treemirror/service/event"
	"go.uber.org/zap"
)

type Option func(s *Service)

func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithProvider sets the resource provider, afs.New() by default.
func WithProvider(provider Provider) Option {
	return func(s *Service) {
		s.provider = provider
	}
}

// WithRegistry shares a pool registry; nodes are allocated from its pools.
func WithRegistry(registry *pool.Registry) Option {
	return func(s *Service) {
		s.registry = registry
	}
}

func WithLock(l *lock.Lock) Option {
	return func(s *Service) {
		s.lock = l
	}
}

// WithHandleStore persists the root handle on Init.
func WithHandleStore(store dao.Service[string, Handle]) Option {
	return func(s *Service) {
		s.handles = store
	}
}

// WithEvents shares an event service for sweep notifications.
func WithEvents(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}
