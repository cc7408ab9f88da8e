// FILE: lixenwraith/propcfg/metrics.go
package propcfg

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics counts dispatched events. A nil *metrics records nothing.
type metrics struct {
	deltas   *prometheus.CounterVec
	failures prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		deltas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propcfg_deltas_total",
			Help: "Property changes applied, by resolving source.",
		}, []string{"source"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "propcfg_failures_total",
			Help: "Property configuration failures.",
		}),
	}

	var err error
	m.deltas, err = registerOrReuse(reg, m.deltas)
	if err != nil {
		return nil, err
	}
	m.failures, err = registerOrReuse(reg, m.failures)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or returns the collector already registered under the same descriptor
func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) observeDelta(source Source) {
	if m == nil {
		return
	}
	m.deltas.WithLabelValues(string(source)).Inc()
}

func (m *metrics) observeFailure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}
