// FILE: lixenwraith/propcfg/configurer.go
package propcfg

import (
	"errors"
	"fmt"
	"reflect"
)

// ConfigureType configures every static property of t.
// The only error returned is a *FailureHandlerError; all other problems are
// reported to failure handlers.
func (e *Engine) ConfigureType(args []string, t *Type) error {
	for _, p := range t.Properties() {
		if !p.static {
			continue
		}
		if err := e.configure(args, nil, p); err != nil {
			return err
		}
	}
	return nil
}

// ConfigureInstance configures every property of the instance's type.
// Static properties are configured without an owner.
func (e *Engine) ConfigureInstance(args []string, in *Instance) error {
	if in == nil {
		return ErrMissingInstance
	}
	for _, p := range in.typ.Properties() {
		owner := in
		if p.static {
			owner = nil
		}
		if err := e.configure(args, owner, p); err != nil {
			return err
		}
	}
	return nil
}

// ConfigureProperty configures a single static property
func (e *Engine) ConfigureProperty(args []string, p *Property) error {
	if !p.static {
		return fmt.Errorf("%w: %s", ErrMissingInstance, p.FullName())
	}
	return e.configure(args, nil, p)
}

// ConfigureField configures a single instance property of in
func (e *Engine) ConfigureField(args []string, in *Instance, p *Property) error {
	if p.static {
		return fmt.Errorf("%w: %s", ErrUnexpectedInstance, p.FullName())
	}
	if in == nil {
		return fmt.Errorf("%w: %s", ErrMissingInstance, p.FullName())
	}
	if in.typ != p.owner {
		return fmt.Errorf("%w: %s does not belong to %s", ErrMutation, p.FullName(), in.typ.fullName)
	}
	return e.configure(args, in, p)
}

// ConfigureTypeWith registers cbs for t, then configures it
func (e *Engine) ConfigureTypeWith(cbs Callbacks, args []string, t *Type) error {
	e.registrar.RegisterType(t, cbs)
	return e.ConfigureType(args, t)
}

// ConfigureInstanceWith registers cbs for in, then configures it
func (e *Engine) ConfigureInstanceWith(cbs Callbacks, args []string, in *Instance) error {
	if in == nil {
		return ErrMissingInstance
	}
	e.registrar.RegisterInstance(in, cbs)
	return e.ConfigureInstance(args, in)
}

// ConfigurePropertyWith registers cbs for the static property p, then configures it
func (e *Engine) ConfigurePropertyWith(cbs Callbacks, args []string, p *Property) error {
	if !p.static {
		return fmt.Errorf("%w: %s", ErrMissingInstance, p.FullName())
	}
	e.registrar.RegisterProperty(p, cbs)
	return e.configure(args, nil, p)
}

// ConfigureFieldWith registers cbs for p, then configures it on in.
// The registration covers p on every instance.
func (e *Engine) ConfigureFieldWith(cbs Callbacks, args []string, in *Instance, p *Property) error {
	if p.static {
		return fmt.Errorf("%w: %s", ErrUnexpectedInstance, p.FullName())
	}
	e.registrar.RegisterProperty(p, cbs)
	return e.ConfigureField(args, in, p)
}

// eligible reports whether p may be configured: it is not a constant and no
// ignore marker is set on it, its type, or any enclosing namespace
func eligible(p *Property) bool {
	if p.immutable || p.desc.Ignore || p.owner.desc.Ignore {
		return false
	}
	return !p.owner.ns.schema.namespaceIgnored(p.owner.ns.path)
}

// configure runs one property through resolve, coerce, compare, set and notify
func (e *Engine) configure(args []string, owner *Instance, p *Property) error {
	if !eligible(p) {
		return nil
	}

	var (
		source   Source
		oldValue = None()
		newValue = None()
	)

	cbs, _ := e.registrar.Lookup(owner, p)

	fail := func(cause error) error {
		failure, err := NewFailure(owner, p, source, oldValue, newValue, cause)
		if err != nil {
			return err
		}
		e.metrics.observeFailure()
		if herr := e.dispatcher.failure(cbs, failure); herr != nil {
			return &FailureHandlerError{Err: herr, Original: cause}
		}
		return nil
	}

	if p.static {
		if _, err := e.registrar.RegisterRemote(p); err != nil && !errors.Is(err, ErrRemoteBlocked) {
			return fail(err)
		}
	}

	current, err := p.get(owner)
	if err != nil {
		return fail(err)
	}
	oldValue = Some(current)

	res, found, err := e.chain.Resolve(p, args)
	if err != nil {
		return fail(err)
	}
	if !found {
		return nil
	}
	source = res.Source

	value, err := Coerce(res.Value, p.typ)
	if err != nil {
		return fail(err)
	}
	newValue = Some(value)

	if reflect.DeepEqual(current, value) {
		return nil
	}
	if err := p.set(owner, value); err != nil {
		return fail(err)
	}

	delta, err := NewDelta(owner, p, source, current, value)
	if err != nil {
		return err
	}
	e.history.append(delta)
	e.metrics.observeDelta(source)

	if err := e.dispatcher.change(cbs, delta); err != nil {
		return fail(err)
	}
	return nil
}
