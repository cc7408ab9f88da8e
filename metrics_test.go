// FILE: lixenwraith/propcfg/metrics_test.go
package propcfg

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountEvents(t *testing.T) {
	schema := NewSchema()
	typ := schema.Namespace("m").Type("Counted")
	a, b, c := 0, 0, 0
	Static(typ, "a", &a, WithLiteral("1"))
	Static(typ, "b", &b)
	Static(typ, "c", &c, WithLiteral("x"))

	reg := prometheus.NewRegistry()
	e, err := NewBuilder().
		WithEnvLookup(envOf("B", "2")).
		WithMetrics(reg).
		Build()
	require.NoError(t, err)

	require.NoError(t, e.ConfigureType(nil, typ))

	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.deltas.WithLabelValues("literal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.deltas.WithLabelValues("env")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.failures))

	count, err := testutil.GatherAndCount(reg, "propcfg_deltas_total", "propcfg_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMetricsReuseRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := newMetrics(reg)
	require.NoError(t, err)
	second, err := newMetrics(reg)
	require.NoError(t, err)

	second.observeFailure()
	assert.Equal(t, 1.0, testutil.ToFloat64(first.failures), "engines sharing a registry share counters")
}

func TestMetricsNilSafe(t *testing.T) {
	var m *metrics
	assert.NotPanics(t, func() {
		m.observeDelta(SourceEnv)
		m.observeFailure()
	})
}
