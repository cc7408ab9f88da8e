// FILE: lixenwraith/propcfg/engine.go
package propcfg

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
)

// Engine resolves, coerces and applies property values and notifies observers.
// An Engine is safe for concurrent use; configuring the same property from two
// goroutines at once is last-writer-wins.
type Engine struct {
	chain      Chain
	props      *Properties // store read by the default chain, nil for custom chains
	registrar  *Registrar
	history    *History
	dispatcher *dispatcher
	metrics    *metrics // nil when metrics are disabled
}

// New creates an engine with the default chain reading the process environment
// and an empty property store
func New() *Engine {
	props := NewProperties()
	e := newEngine(DefaultChain(os.LookupEnv, props))
	e.props = props
	return e
}

// NewWithChain creates an engine with a custom mechanism chain
func NewWithChain(chain Chain) *Engine {
	return newEngine(chain)
}

func newEngine(chain Chain) *Engine {
	return &Engine{
		chain:      chain,
		registrar:  NewRegistrar(),
		history:    &History{},
		dispatcher: newDispatcher(),
	}
}

// Registrar returns the engine's callback registrar
func (e *Engine) Registrar() *Registrar { return e.registrar }

// History returns the log of all deltas produced by the engine
func (e *Engine) History() *History { return e.history }

// Properties returns the store read by the default chain's property mechanism,
// or nil when the engine was built with a custom chain
func (e *Engine) Properties() *Properties { return e.props }

// Chain returns the engine's mechanism chain
func (e *Engine) Chain() Chain { return e.chain }

// DefineProcedure makes proc callable through NamedHandlers. A nil proc removes the name.
func (e *Engine) DefineProcedure(name string, proc Procedure) {
	e.dispatcher.define(name, proc)
}

// RegisterRemote exposes a static property on the remote surface and returns its key
func (e *Engine) RegisterRemote(p *Property) (string, error) {
	return e.registrar.RegisterRemote(p)
}

// RemoteKeys returns the sorted remote keys
func (e *Engine) RemoteKeys() []string {
	return e.registrar.RemoteKeys()
}

// ResolveRemote finds the property bound to a remote key
func (e *Engine) ResolveRemote(key string) (*Property, bool) {
	return e.registrar.ResolveRemote(key)
}

// RemoteBlocked reports whether key belongs to a property blocked from remote access
func (e *Engine) RemoteBlocked(key string) bool {
	return e.registrar.RemoteBlocked(key)
}

// RemoteValue reads the current value of a static property
func (e *Engine) RemoteValue(p *Property) (any, error) {
	return p.get(nil)
}

// ApplyRemote coerces raw and writes it directly, bypassing the mechanism chain.
// No Delta is produced.
func (e *Engine) ApplyRemote(p *Property, raw any) error {
	if !p.static {
		return fmt.Errorf("%w: %s", ErrMissingInstance, p.FullName())
	}
	value, err := Coerce(raw, p.typ)
	if err != nil {
		return err
	}
	return p.set(nil, value)
}

// Snapshot returns the current value of every remotely registered property,
// keyed by remote key. Redacted values are replaced.
func (e *Engine) Snapshot() map[string]any {
	keys := e.registrar.RemoteKeys()
	snapshot := make(map[string]any, len(keys))
	for _, key := range keys {
		p, ok := e.registrar.ResolveRemote(key)
		if !ok {
			continue
		}
		if p.desc.Redact {
			snapshot[key] = redactedValue
			continue
		}
		value, err := p.get(nil)
		if err != nil {
			continue
		}
		snapshot[key] = value
	}
	return snapshot
}

// SaveSnapshot writes Snapshot to path as TOML, atomically.
// Nil values are omitted.
func (e *Engine) SaveSnapshot(path string) error {
	nested := make(map[string]any)
	for key, value := range e.Snapshot() {
		if isNil(value) {
			continue
		}
		setNestedValue(nested, key, value)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(nested); err != nil {
		return fmt.Errorf("failed to marshal snapshot to TOML: %w", err)
	}
	return atomicWriteFile(path, buf.Bytes())
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Debug returns a human-readable dump of remote properties and recent history
func (e *Engine) Debug() string {
	var b strings.Builder
	b.WriteString("Engine Debug Info:\n")

	sources := make([]string, 0, len(e.chain))
	for _, m := range e.chain {
		sources = append(sources, string(m.Source()))
	}
	b.WriteString(fmt.Sprintf("Chain: %s\n", strings.Join(sources, " -> ")))

	b.WriteString("Remote properties:\n")
	snapshot := e.Snapshot()
	for _, key := range e.registrar.RemoteKeys() {
		b.WriteString(fmt.Sprintf("  %s: %v\n", key, snapshot[key]))
	}

	deltas := e.history.Deltas()
	b.WriteString(fmt.Sprintf("History (%d):\n", len(deltas)))
	for _, d := range deltas {
		b.WriteString(fmt.Sprintf("  %s %s\n", d.Time.Format("15:04:05.000"), d))
	}
	return b.String()
}
