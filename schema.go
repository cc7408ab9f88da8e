// FILE: lixenwraith/propcfg/schema.go
package propcfg

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Schema is the declaration root for namespaces, types and their properties.
// Declarations are expected at startup; lookups are safe for concurrent use.
type Schema struct {
	mu         sync.RWMutex
	namespaces map[string]*Namespace
	types      map[string]*Type // keyed by full name
}

// NewSchema creates an empty schema
func NewSchema() *Schema {
	return &Schema{
		namespaces: make(map[string]*Namespace),
		types:      make(map[string]*Type),
	}
}

// Namespace returns the namespace for a dot-separated path, declaring it if needed.
// Options are applied to the namespace descriptor on every call.
func (s *Schema) Namespace(path string, opts ...Option) *Namespace {
	path = strings.Trim(path, ".")

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, exists := s.namespaces[path]
	if !exists {
		ns = &Namespace{schema: s, path: path}
		s.namespaces[path] = ns
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&ns.desc)
		}
	}
	return ns
}

// LookupType finds a declared type by its full name
func (s *Schema) LookupType(fullName string) (*Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[fullName]
	return t, ok
}

// namespaceIgnored reports whether the namespace or any of its ancestors is ignored
func (s *Schema) namespaceIgnored(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, candidate := range ancestors(path) {
		if ns, ok := s.namespaces[candidate]; ok && ns.desc.Ignore {
			return true
		}
	}
	return false
}

// Namespace groups types under a dot-separated path
type Namespace struct {
	schema *Schema
	path   string
	desc   Descriptor
}

// Path returns the namespace path ("" for the root namespace)
func (n *Namespace) Path() string { return n.path }

// Schema returns the owning schema
func (n *Namespace) Schema() *Schema { return n.schema }

// Descriptor returns the namespace's descriptor
func (n *Namespace) Descriptor() Descriptor {
	n.schema.mu.RLock()
	defer n.schema.mu.RUnlock()
	return n.desc
}

// Type declares a type in the namespace, or returns the existing one with the same name
func (n *Namespace) Type(name string, opts ...Option) *Type {
	if name == "" || strings.Contains(name, ".") {
		panic(fmt.Sprintf("propcfg: invalid type name %q", name))
	}

	fullName := name
	if n.path != "" {
		fullName = n.path + "." + name
	}

	n.schema.mu.Lock()
	defer n.schema.mu.Unlock()

	if t, exists := n.schema.types[fullName]; exists {
		return t
	}

	t := &Type{
		ns:        n,
		name:      name,
		fullName:  fullName,
		desc:      newDescriptor(opts),
		members:   make(map[string]*Property),
		constants: make(map[string]*Property),
	}
	n.schema.types[fullName] = t
	return t
}

// Type owns properties and constants; it plays the role of a class
type Type struct {
	ns       *Namespace
	name     string
	fullName string
	desc     Descriptor

	mu        sync.RWMutex
	goType    reflect.Type // owner struct type, bound by the first Field declaration
	props     []*Property  // declaration order
	members   map[string]*Property
	constants map[string]*Property
}

// Name returns the short type name
func (t *Type) Name() string { return t.name }

// FullName returns "<namespace>.<name>"
func (t *Type) FullName() string { return t.fullName }

// Namespace returns the owning namespace
func (t *Type) Namespace() *Namespace { return t.ns }

// Descriptor returns the type's descriptor
func (t *Type) Descriptor() Descriptor { return t.desc }

// String implements fmt.Stringer
func (t *Type) String() string { return t.fullName }

// Properties returns all declared members, constants included, in declaration order
func (t *Type) Properties() []*Property {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*Property(nil), t.props...)
}

// Property finds a declared member by name
func (t *Type) Property(name string) (*Property, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.members[name]
	return p, ok
}

// Constant finds a constant declared directly on the type
func (t *Type) Constant(name string) (*Property, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.constants[name]
	return p, ok
}

func (t *Type) add(p *Property) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.members[p.name]; exists {
		panic(fmt.Sprintf("propcfg: %s.%s redeclared", t.fullName, p.name))
	}
	t.members[p.name] = p
	t.props = append(t.props, p)
	if p.immutable && p.static {
		t.constants[p.name] = p
	}
}

func (t *Type) bindGoType(rt reflect.Type) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.goType != nil && t.goType != rt {
		panic(fmt.Sprintf("propcfg: type %s already bound to %s, cannot bind %s", t.fullName, t.goType, rt))
	}
	t.goType = rt
}

func (t *Type) boundGoType() reflect.Type {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.goType
}

// Property is a named, typed, mutable location annotated with a Descriptor
type Property struct {
	owner     *Type
	name      string
	typ       reflect.Type
	static    bool
	immutable bool
	desc      Descriptor

	staticVal reflect.Value                        // addressable value of a static property
	locate    func(obj any) (reflect.Value, error) // addressable field of an owner object

	// guards reads and writes of the bound value; never held across callbacks
	mu sync.RWMutex
}

// Static declares a class-level property backed by the variable at ptr
func Static[V any](t *Type, name string, ptr *V, opts ...Option) *Property {
	if ptr == nil {
		panic(fmt.Sprintf("propcfg: nil pointer for static property %q", name))
	}
	p := newProperty(t, name, reflect.TypeFor[V](), opts)
	p.static = true
	p.staticVal = reflect.ValueOf(ptr).Elem()
	t.add(p)
	return p
}

// Constant declares an immutable class-level member holding value.
// Constants are never configured; they feed the constant mechanism.
func Constant[V any](t *Type, name string, value V) *Property {
	holder := new(V)
	*holder = value
	p := newProperty(t, name, reflect.TypeFor[V](), nil)
	p.static = true
	p.immutable = true
	p.staticVal = reflect.ValueOf(holder).Elem()
	t.add(p)
	return p
}

// Field declares an instance-level property; locate returns the field inside an owner
func Field[O any, V any](t *Type, name string, locate func(*O) *V, opts ...Option) *Property {
	if locate == nil {
		panic(fmt.Sprintf("propcfg: nil locator for field %q", name))
	}
	ownerType := reflect.TypeFor[O]()
	p := newProperty(t, name, reflect.TypeFor[V](), opts)
	p.locate = func(obj any) (reflect.Value, error) {
		o, ok := obj.(*O)
		if !ok || o == nil {
			return reflect.Value{}, fmt.Errorf("%w: owner of %s must be a non-nil *%s, got %T",
				ErrMutation, p.FullName(), ownerType, obj)
		}
		return reflect.ValueOf(locate(o)).Elem(), nil
	}
	t.bindGoType(ownerType)
	t.add(p)
	return p
}

func newProperty(t *Type, name string, typ reflect.Type, opts []Option) *Property {
	if t == nil {
		panic(fmt.Sprintf("propcfg: property %q declared without a type", name))
	}
	if name == "" || strings.Contains(name, ".") {
		panic(fmt.Sprintf("propcfg: invalid property name %q", name))
	}
	return &Property{
		owner: t,
		name:  name,
		typ:   typ,
		desc:  newDescriptor(opts),
	}
}

// Name returns the property name
func (p *Property) Name() string { return p.name }

// Owner returns the declaring type
func (p *Property) Owner() *Type { return p.owner }

// FullName returns "<owner full name>.<name>"
func (p *Property) FullName() string { return p.owner.fullName + "." + p.name }

// Type returns the declared Go type
func (p *Property) Type() reflect.Type { return p.typ }

// Static reports whether the property is class-level
func (p *Property) Static() bool { return p.static }

// Immutable reports whether the property is a constant
func (p *Property) Immutable() bool { return p.immutable }

// Descriptor returns the property's descriptor
func (p *Property) Descriptor() Descriptor { return p.desc }

// String implements fmt.Stringer
func (p *Property) String() string { return p.FullName() }

// checkOwner enforces that an owner is present iff the property is instance-level
func (p *Property) checkOwner(owner *Instance) error {
	switch {
	case p.static && owner != nil:
		return fmt.Errorf("%w: %s", ErrUnexpectedInstance, p.FullName())
	case !p.static && owner == nil:
		return fmt.Errorf("%w: %s", ErrMissingInstance, p.FullName())
	case owner != nil && owner.typ != p.owner:
		return fmt.Errorf("%w: %s does not belong to %s", ErrMutation, p.FullName(), owner.typ.fullName)
	}
	return nil
}

func (p *Property) location(owner *Instance) (reflect.Value, error) {
	if err := p.checkOwner(owner); err != nil {
		return reflect.Value{}, err
	}
	if p.static {
		return p.staticVal, nil
	}
	return p.locate(owner.obj)
}

// get reads the current value
func (p *Property) get(owner *Instance) (any, error) {
	v, err := p.location(owner)
	if err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return v.Interface(), nil
}

// set writes value, which must be assignable to the declared type; nil writes the zero value
func (p *Property) set(owner *Instance, value any) error {
	if p.immutable {
		return fmt.Errorf("%w: %s is immutable", ErrMutation, p.FullName())
	}
	loc, err := p.location(owner)
	if err != nil {
		return err
	}
	if !loc.CanSet() {
		return fmt.Errorf("%w: %s is not settable", ErrMutation, p.FullName())
	}

	rv := reflect.Zero(p.typ)
	if value != nil {
		rv = reflect.ValueOf(value)
		if !rv.Type().AssignableTo(p.typ) {
			return fmt.Errorf("%w: cannot assign %T to %s (%s)", ErrMutation, value, p.FullName(), p.typ)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	loc.Set(rv)
	return nil
}

// Instance is a stable handle for an owner object of a Type
type Instance struct {
	id  uuid.UUID
	typ *Type
	obj any
}

// NewInstance issues a handle for obj, which must be a non-nil pointer to the
// struct type bound by the type's Field declarations
func NewInstance(t *Type, obj any) (*Instance, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrMissingInstance)
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil, fmt.Errorf("%w: instance of %s must be a non-nil pointer, got %T", ErrMissingInstance, t.fullName, obj)
	}
	if gt := t.boundGoType(); gt != nil && rv.Type().Elem() != gt {
		return nil, fmt.Errorf("%w: instance of %s must be *%s, got %T", ErrMissingInstance, t.fullName, gt, obj)
	}
	return &Instance{id: uuid.New(), typ: t, obj: obj}, nil
}

// MustInstance is like NewInstance but panics on error
func MustInstance(t *Type, obj any) *Instance {
	in, err := NewInstance(t, obj)
	if err != nil {
		panic(err)
	}
	return in
}

// ID returns the handle's stable identifier
func (in *Instance) ID() uuid.UUID { return in.id }

// Type returns the instance's type
func (in *Instance) Type() *Type { return in.typ }

// Object returns the owner object
func (in *Instance) Object() any { return in.obj }

// String implements fmt.Stringer
func (in *Instance) String() string { return in.typ.fullName + "#" + in.id.String() }
