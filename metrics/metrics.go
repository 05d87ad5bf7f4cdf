// Package metrics exposes Prometheus instruments for pools, the tree
// synchronizer and the task scheduler.
//
// A nil *Metrics is valid and records nothing, so components accept one
// unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "treemirror"

// Metrics holds all instruments registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	poolInUse   *prometheus.GaugeVec
	poolFree    *prometheus.GaugeVec
	poolPending *prometheus.GaugeVec

	sweepDuration prometheus.Histogram
	sweepErrors   prometheus.Counter
	sweepSkipped  prometheus.Counter
	treeNodes     *prometheus.GaugeVec

	lockWaiters prometheus.Gauge

	tasksTotal   *prometheus.CounterVec
	tasksQueued  prometheus.Gauge
	tasksActive  prometheus.Gauge
	bytesFetched prometheus.Counter
}

// New creates metrics backed by a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		poolInUse: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_in_use",
			Help:      "Committed in-use objects per pool kind",
		}, []string{"kind"}),
		poolFree: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_free",
			Help:      "Objects ready for reuse per pool kind",
		}, []string{"kind"}),
		poolPending: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_pending",
			Help:      "Staged adds and removes waiting for the next tick",
		}, []string{"kind"}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of reconciliation sweeps",
			Buckets:   prometheus.DefBuckets,
		}),
		sweepErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_errors_total",
			Help:      "Sweeps that aborted with an error",
		}),
		sweepSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_skipped_total",
			Help:      "Scheduled sweeps skipped because the tree lock was held",
		}),
		treeNodes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tree_nodes",
			Help:      "Nodes in the mirrored tree after the last sweep",
		}, []string{"type"}),
		lockWaiters: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lock_waiters",
			Help:      "Operations waiting on the tree lock",
		}),
		tasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Tasks that reached a terminal status",
		}, []string{"kind", "status"}),
		tasksQueued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_queued",
			Help:      "Tasks waiting in the scheduler queue",
		}),
		tasksActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_active",
			Help:      "Tasks currently running",
		}),
		bytesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes fetched by download tasks",
		}),
	}
}

// Registry returns the underlying registry, nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePool records pool occupancy.
func (m *Metrics) ObservePool(kind string, inUse, free, pending int) {
	if m == nil {
		return
	}
	m.poolInUse.WithLabelValues(kind).Set(float64(inUse))
	m.poolFree.WithLabelValues(kind).Set(float64(free))
	m.poolPending.WithLabelValues(kind).Set(float64(pending))
}

// ObserveSweep records a completed or failed sweep.
func (m *Metrics) ObserveSweep(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.sweepErrors.Inc()
	}
}

// SweepSkipped counts a scheduled sweep skipped under lock contention.
func (m *Metrics) SweepSkipped() {
	if m == nil {
		return
	}
	m.sweepSkipped.Inc()
}

// ObserveTree records node counts.
func (m *Metrics) ObserveTree(folders, files int) {
	if m == nil {
		return
	}
	m.treeNodes.WithLabelValues("folder").Set(float64(folders))
	m.treeNodes.WithLabelValues("file").Set(float64(files))
}

// ObserveLockWaiters records the lock queue length.
func (m *Metrics) ObserveLockWaiters(n int) {
	if m == nil {
		return
	}
	m.lockWaiters.Set(float64(n))
}

// TaskDone counts a task terminal status.
func (m *Metrics) TaskDone(kind, status string) {
	if m == nil {
		return
	}
	m.tasksTotal.WithLabelValues(kind, status).Inc()
}

// ObserveScheduler records queue depth and active count.
func (m *Metrics) ObserveScheduler(queued, active int) {
	if m == nil {
		return
	}
	m.tasksQueued.Set(float64(queued))
	m.tasksActive.Set(float64(active))
}

// BytesFetched counts downloaded bytes.
func (m *Metrics) BytesFetched(n int) {
	if m == nil {
		return
	}
	m.bytesFetched.Add(float64(n))
}
