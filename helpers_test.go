// FILE: lixenwraith/propcfg/helpers_test.go
package propcfg

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// envOf returns a lookup over alternating key/value pairs
func envOf(pairs ...string) LookupFunc {
	env := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		env[pairs[i]] = pairs[i+1]
	}
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// newTestEngine builds an engine isolated from the process environment
func newTestEngine(t *testing.T, env LookupFunc, props *Properties) *Engine {
	t.Helper()
	if env == nil {
		env = envOf()
	}
	b := NewBuilder().WithEnvLookup(env)
	if props != nil {
		b = b.WithProperties(props)
	}
	e, err := b.Build()
	require.NoError(t, err)
	return e
}

// recorder collects events delivered to its callbacks
type recorder struct {
	mu       sync.Mutex
	deltas   []*Delta
	failures []*Failure
}

func (r *recorder) callbacks() Callbacks {
	return DirectHandlers{
		OnChange: func(d *Delta) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.deltas = append(r.deltas, d)
			return nil
		},
		OnFailure: func(f *Failure) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.failures = append(r.failures, f)
			return nil
		},
	}
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deltas), len(r.failures)
}
