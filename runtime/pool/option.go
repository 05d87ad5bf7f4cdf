package pool

import (
	"github.com/viant/treemirror/metrics"
	"go.uber.org/zap"
)

// Option configures a Registry.
type Option func(r *Registry)

// WithLogger sets the logger used to report invariant violations.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics publishes pool occupancy on every tick.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithBulk sets the default number of objects constructed when a free list runs dry.
func WithBulk(bulk int) Option {
	return func(r *Registry) {
		r.bulk = bulk
	}
}
