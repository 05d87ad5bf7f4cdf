package scheduler

import (
	"github.com/viant/treemirror/metrics"
	"github.com/viant/treemirror/model/task"
	"go.uber.org/zap"
)

type Option func(s *Service)

func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
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

// WithListener registers fn for every task reaching a terminal status.
func WithListener(fn func(task.Info)) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, fn)
	}
}
