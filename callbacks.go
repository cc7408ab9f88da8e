// FILE: lixenwraith/propcfg/callbacks.go
package propcfg

import (
	"fmt"
	"sync"
)

// ChangeHandler observes a successful change
type ChangeHandler func(*Delta) error

// FailureHandler observes a failed resolution, coercion or mutation
type FailureHandler func(*Failure) error

// Procedure is a handler registered by name; it receives a *Delta or a *Failure
type Procedure func(Event) error

// Callbacks is either DirectHandlers or NamedHandlers
type Callbacks interface {
	callbacks()
}

// DirectHandlers invoke functions directly. Either may be nil, not both.
type DirectHandlers struct {
	OnChange  ChangeHandler
	OnFailure FailureHandler
}

// NamedHandlers invoke procedures defined on the engine. Either may be empty, not both.
type NamedHandlers struct {
	OnChange  string
	OnFailure string
}

func (DirectHandlers) callbacks() {}
func (NamedHandlers) callbacks()  {}

// Direct builds direct callbacks
func Direct(onChange ChangeHandler, onFailure FailureHandler) (Callbacks, error) {
	if onChange == nil && onFailure == nil {
		return nil, ErrEmptyCallbacks
	}
	return DirectHandlers{OnChange: onChange, OnFailure: onFailure}, nil
}

// Named builds callbacks resolved by procedure name at dispatch time
func Named(onChange, onFailure string) (Callbacks, error) {
	if onChange == "" && onFailure == "" {
		return nil, ErrEmptyCallbacks
	}
	return NamedHandlers{OnChange: onChange, OnFailure: onFailure}, nil
}

// Observe routes both events to fn; exactly one of its arguments is non-nil per call
func Observe(fn func(*Delta, *Failure) error) (Callbacks, error) {
	if fn == nil {
		return nil, ErrEmptyCallbacks
	}
	return DirectHandlers{
		OnChange:  func(d *Delta) error { return fn(d, nil) },
		OnFailure: func(f *Failure) error { return fn(nil, f) },
	}, nil
}

// MustCallbacks panics if err is not nil
func MustCallbacks(cbs Callbacks, err error) Callbacks {
	if err != nil {
		panic(err)
	}
	return cbs
}

// dispatcher invokes callbacks and owns the procedure table
type dispatcher struct {
	mu    sync.RWMutex
	procs map[string]Procedure
}

func newDispatcher() *dispatcher {
	return &dispatcher{procs: make(map[string]Procedure)}
}

func (d *dispatcher) define(name string, proc Procedure) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if proc == nil {
		delete(d.procs, name)
		return
	}
	d.procs[name] = proc
}

func (d *dispatcher) procedure(name string) (Procedure, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	proc, ok := d.procs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProcedure, name)
	}
	return proc, nil
}

// change invokes the change handler of cbs, if any
func (d *dispatcher) change(cbs Callbacks, delta *Delta) error {
	switch h := cbs.(type) {
	case DirectHandlers:
		if h.OnChange == nil {
			return nil
		}
		return invoke(func() error { return h.OnChange(delta) })
	case NamedHandlers:
		if h.OnChange == "" {
			return nil
		}
		proc, err := d.procedure(h.OnChange)
		if err != nil {
			return err
		}
		return invoke(func() error { return proc(delta) })
	}
	return nil
}

// failure invokes the failure handler of cbs, if any
func (d *dispatcher) failure(cbs Callbacks, f *Failure) error {
	switch h := cbs.(type) {
	case DirectHandlers:
		if h.OnFailure == nil {
			return nil
		}
		return invoke(func() error { return h.OnFailure(f) })
	case NamedHandlers:
		if h.OnFailure == "" {
			return nil
		}
		proc, err := d.procedure(h.OnFailure)
		if err != nil {
			return err
		}
		return invoke(func() error { return proc(f) })
	}
	return nil
}

// invoke runs a user handler, turning a panic into ErrHandlerPanic
func invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return fn()
}
