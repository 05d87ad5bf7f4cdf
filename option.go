package treemirror

import (
	"net/http"

	"github.com/viant/treemirror/metrics"
	"github.com/viant/treemirror/service/dao"
	"github.com/viant/treemirror/service/mirror"
	"github.com/viant/treemirror/tracing"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Service.
type Option func(s *Service)

// WithConfig sets the configuration, DefaultConfig() by default.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithLogger overrides the logger built from Config.Log.
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

// WithProvider sets the storage backing the tree, afs.New() by default.
func WithProvider(provider mirror.Provider) Option {
	return func(s *Service) {
		s.provider = provider
	}
}

// WithHandleStore overrides the store built from Config.Store.
func WithHandleStore(store dao.Service[string, mirror.Handle]) Option {
	return func(s *Service) {
		s.handles = store
	}
}

// WithHTTPClient sets the client used by downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.client = client
	}
}

// WithTracingExporter installs a custom span exporter. The first successful
// installation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
