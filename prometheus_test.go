package threadpool

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricsRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusMetrics("tpool", "pool", reg)

	fams, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(fams))
	for _, f := range fams {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "tpool_pool_jobs_queued")
	assert.Contains(t, names, "tpool_pool_jobs_executed_total")
	assert.Contains(t, names, "tpool_pool_jobs_panicked_total")
}

func TestPrometheusMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics("tpool", "pool", reg)

	p := NewWithOptions(2, Options{Metrics: pm})
	for i := 0; i < 10; i++ {
		p.Execute(func() {})
	}
	p.Execute(func() { panic("boom") })
	p.Stop()

	assert.Equal(t, float64(11), testutil.ToFloat64(pm.executed))
	assert.Equal(t, float64(1), testutil.ToFloat64(pm.panicked))
	assert.Equal(t, float64(0), testutil.ToFloat64(pm.queued))
}
