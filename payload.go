// FILE: lixenwraith/propcfg/payload.go
package propcfg

import (
	"fmt"
	"time"
)

// Optional holds a value that may be absent
type Optional struct {
	Value any
	Valid bool
}

// Some wraps a present value, which may itself be nil
func Some(v any) Optional { return Optional{Value: v, Valid: true} }

// None is the absent value
func None() Optional { return Optional{} }

// Event is implemented by *Delta and *Failure
type Event interface {
	payload() *Payload
}

// Payload is the part shared by every event
type Payload struct {
	Owner      *Instance // set iff the property is instance-level
	Property   *Property
	Descriptor Descriptor
	Source     Source // empty when no mechanism produced a value
	Time       time.Time
}

func (p *Payload) payload() *Payload { return p }

func newPayload(owner *Instance, p *Property, source Source, at time.Time) (Payload, error) {
	if p == nil {
		return Payload{}, fmt.Errorf("%w: nil property", ErrOwnerMismatch)
	}
	if (owner == nil) != p.static {
		return Payload{}, fmt.Errorf("%w: %s (static=%t, owner=%v)", ErrOwnerMismatch, p.FullName(), p.static, owner)
	}
	return Payload{
		Owner:      owner,
		Property:   p,
		Descriptor: p.desc,
		Source:     source,
		Time:       at,
	}, nil
}

// Delta records a successful change of a property
type Delta struct {
	Payload
	OldValue any
	NewValue any
}

// NewDelta builds a Delta stamped with the current time
func NewDelta(owner *Instance, p *Property, source Source, oldValue, newValue any) (*Delta, error) {
	base, err := newPayload(owner, p, source, time.Now())
	if err != nil {
		return nil, err
	}
	return &Delta{Payload: base, OldValue: oldValue, NewValue: newValue}, nil
}

func (d *Delta) String() string {
	return fmt.Sprintf("%s: %s -> %s (%s)", d.Property.FullName(),
		display(d.Descriptor, d.OldValue), display(d.Descriptor, d.NewValue), d.Source)
}

// Failure records an error raised while resolving, coercing or applying a property.
// Old and new values are present only if the pass got that far.
type Failure struct {
	Payload
	OldValue Optional
	NewValue Optional
	Err      error
}

// NewFailure builds a Failure stamped with the current time
func NewFailure(owner *Instance, p *Property, source Source, oldValue, newValue Optional, cause error) (*Failure, error) {
	base, err := newPayload(owner, p, source, time.Now())
	if err != nil {
		return nil, err
	}
	return &Failure{Payload: base, OldValue: oldValue, NewValue: newValue, Err: cause}, nil
}

func (f *Failure) String() string {
	return fmt.Sprintf("%s: %v", f.Property.FullName(), f.Err)
}

// Unwrap returns the cause
func (f *Failure) Unwrap() error { return f.Err }

// redactedValue replaces values of redacted properties in logs and exports
const redactedValue = "<redacted>"

func display(desc Descriptor, v any) string {
	if desc.Redact {
		return redactedValue
	}
	return fmt.Sprintf("%v", v)
}

func displayOptional(desc Descriptor, o Optional) string {
	if !o.Valid {
		return "<none>"
	}
	return display(desc, o.Value)
}
