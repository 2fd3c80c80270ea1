package threadpool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics is a MetricsPolicy publishing pool activity as
// Prometheus collectors.
//
// The queued gauge tracks jobs waiting in the queue; the executed and
// panicked counters only ever grow. One instance maps to one pool:
// registering two pools with the same namespace and subsystem on the
// same registry is a duplicate-collector panic, as usual with
// promauto.
type PrometheusMetrics struct {
	queued   prometheus.Gauge
	executed prometheus.Counter
	panicked prometheus.Counter
}

// NewPrometheusMetrics registers the pool collectors with reg under
// the given namespace and subsystem. A dedicated registry keeps tests
// isolated; prometheus.DefaultRegisterer works fine in binaries.
func NewPrometheusMetrics(namespace, subsystem string, reg prometheus.Registerer) *PrometheusMetrics {
	f := promauto.With(reg)
	return &PrometheusMetrics{
		queued: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_queued",
			Help:      "Number of jobs currently waiting in the queue.",
		}),
		executed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_executed_total",
			Help:      "Total number of jobs run, including jobs that panicked.",
		}),
		panicked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_panicked_total",
			Help:      "Total number of jobs that panicked while running.",
		}),
	}
}

func (m *PrometheusMetrics) IncQueued()   { m.queued.Inc() }
func (m *PrometheusMetrics) DecQueued()   { m.queued.Dec() }
func (m *PrometheusMetrics) IncExecuted() { m.executed.Inc() }
func (m *PrometheusMetrics) IncPanicked() { m.panicked.Inc() }
