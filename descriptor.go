// FILE: lixenwraith/propcfg/descriptor.go
package propcfg

// LiteralKind selects how a descriptor's literal override is interpreted
type LiteralKind int

const (
	// NoLiteral means the literal mechanism produces nothing
	NoLiteral LiteralKind = iota
	// LiteralNull resolves to an explicit null
	LiteralNull
	// LiteralValue resolves to the literal string, which may be empty
	LiteralValue
)

// Literal is the literal-value override of a descriptor
type Literal struct {
	Kind  LiteralKind
	Value string
}

// Descriptor is the per-property configuration policy.
// On types and namespaces only Ignore is consulted.
type Descriptor struct {
	// Ignore excludes the property (or every property below a type/namespace)
	Ignore bool

	// Literal overrides the value regardless of external state
	Literal Literal

	// Constant names the constant to read, bare ("NAME") or qualified ("ns.Type.NAME").
	// Empty means DEFAULT_<UPPER_SNAKE_NAME> on the owning type.
	Constant string

	// Argument replaces the default "--name=" and "--owner.name=" argument keys
	Argument string

	// Prop replaces the default "name" and "owner.name" property keys
	Prop string

	// EnvVar replaces the default UPPER_SNAKE environment variable
	EnvVar string

	// RemoteKey replaces the default "owner.name" remote key
	RemoteKey string

	// BlockRemote keeps the property off the remote surface
	BlockRemote bool

	// Redact hides values when the property is logged or exported
	Redact bool
}

// Option mutates a Descriptor during declaration
type Option func(*Descriptor)

// Ignore marks a property, type or namespace as never configured
func Ignore() Option {
	return func(d *Descriptor) { d.Ignore = true }
}

// WithLiteral sets a literal string value
func WithLiteral(value string) Option {
	return func(d *Descriptor) { d.Literal = Literal{Kind: LiteralValue, Value: value} }
}

// WithNullLiteral sets an explicit null literal
func WithNullLiteral() Option {
	return func(d *Descriptor) { d.Literal = Literal{Kind: LiteralNull} }
}

// WithConstant names the constant the value is read from
func WithConstant(name string) Option {
	return func(d *Descriptor) { d.Constant = name }
}

// WithArgument names the command-line argument the value is read from
func WithArgument(name string) Option {
	return func(d *Descriptor) { d.Argument = name }
}

// WithProp names the process property the value is read from
func WithProp(name string) Option {
	return func(d *Descriptor) { d.Prop = name }
}

// WithEnvVar names the environment variable the value is read from
func WithEnvVar(name string) Option {
	return func(d *Descriptor) { d.EnvVar = name }
}

// WithRemoteKey sets the key exposed on the remote surface
func WithRemoteKey(key string) Option {
	return func(d *Descriptor) { d.RemoteKey = key }
}

// BlockRemote keeps the property off the remote surface
func BlockRemote() Option {
	return func(d *Descriptor) { d.BlockRemote = true }
}

// Redact hides the property's values in logs and exports
func Redact() Option {
	return func(d *Descriptor) { d.Redact = true }
}

func newDescriptor(opts []Option) Descriptor {
	var d Descriptor
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}
	return d
}
