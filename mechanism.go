// FILE: lixenwraith/propcfg/mechanism.go
package propcfg

import (
	"fmt"
	"os"
	"strings"
)

// Source identifies the mechanism that produced a value
type Source string

const (
	// SourceEnv represents values read from environment variables
	SourceEnv Source = "env"
	// SourceProperty represents values read from the process property store
	SourceProperty Source = "property"
	// SourceCLI represents values read from command-line arguments
	SourceCLI Source = "cli"
	// SourceConstant represents values read from a declared constant
	SourceConstant Source = "constant"
	// SourceLiteral represents values taken from a descriptor literal
	SourceLiteral Source = "literal"
	// SourceRemote represents values written through the remote surface
	SourceRemote Source = "remote"
)

// LookupFunc reads a key from an external key/value source
type LookupFunc func(key string) (string, bool)

// Mechanism resolves a raw value for a property.
// It reports found=false when it has nothing to say, and an error when the
// property's descriptor is broken for this mechanism.
type Mechanism interface {
	Source() Source
	Resolve(p *Property, args []string) (value any, found bool, err error)
}

// Resolution is a value found by a chain together with its origin
type Resolution struct {
	Value  any
	Source Source
}

// Chain runs mechanisms in order
type Chain []Mechanism

// DefaultChain returns env, property, argument, constant and literal, in that order
func DefaultChain(lookup LookupFunc, props *Properties) Chain {
	return Chain{
		&EnvMechanism{Lookup: lookup},
		&PropertyMechanism{Props: props},
		&ArgumentMechanism{},
		&ConstantMechanism{},
		&LiteralMechanism{},
	}
}

// Resolve returns the first found value. An error stops the chain.
func (c Chain) Resolve(p *Property, args []string) (Resolution, bool, error) {
	for _, m := range c {
		value, found, err := m.Resolve(p, args)
		if err != nil {
			return Resolution{}, false, fmt.Errorf("%s mechanism for %s: %w", m.Source(), p.FullName(), err)
		}
		if found {
			return Resolution{Value: value, Source: m.Source()}, true, nil
		}
	}
	return Resolution{}, false, nil
}

// defaultKeys returns the candidate keys used when no explicit name is set
func defaultKeys(p *Property, explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}
	return []string{p.name, p.FullName()}
}

// EnvMechanism reads the variable named by EnvVar, or the upper snake case property name
type EnvMechanism struct {
	Lookup LookupFunc // nil means os.LookupEnv
}

func (m *EnvMechanism) Source() Source { return SourceEnv }

func (m *EnvMechanism) Resolve(p *Property, _ []string) (any, bool, error) {
	name := p.desc.EnvVar
	if name == "" {
		name = UpperSnake(p.name)
	}
	lookup := m.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if value, ok := lookup(name); ok {
		return value, true, nil
	}
	return nil, false, nil
}

// PropertyMechanism reads the process property store
type PropertyMechanism struct {
	Props *Properties
}

func (m *PropertyMechanism) Source() Source { return SourceProperty }

func (m *PropertyMechanism) Resolve(p *Property, _ []string) (any, bool, error) {
	if m.Props == nil {
		return nil, false, nil
	}
	for _, key := range defaultKeys(p, p.desc.Prop) {
		if value, ok := m.Props.Get(key); ok {
			return value, true, nil
		}
	}
	return nil, false, nil
}

// ArgumentMechanism scans args for "--<candidate>=" and returns the remainder verbatim
type ArgumentMechanism struct{}

func (m *ArgumentMechanism) Source() Source { return SourceCLI }

func (m *ArgumentMechanism) Resolve(p *Property, args []string) (any, bool, error) {
	for _, key := range defaultKeys(p, p.desc.Argument) {
		prefix := "--" + key + "="
		for _, arg := range args {
			if value, ok := strings.CutPrefix(arg, prefix); ok {
				return value, true, nil
			}
		}
	}
	return nil, false, nil
}

// ConstantMechanism reads a declared constant.
// Without an explicit name it looks for DEFAULT_<UPPER_SNAKE> on the owner and
// reports not-found when absent; an explicit name that does not resolve is an error.
type ConstantMechanism struct{}

func (m *ConstantMechanism) Source() Source { return SourceConstant }

func (m *ConstantMechanism) Resolve(p *Property, _ []string) (any, bool, error) {
	name := p.desc.Constant
	if name == "" {
		c, ok := p.owner.Constant(defaultConstantName(p.name))
		if !ok {
			return nil, false, nil
		}
		value, err := c.get(nil)
		return value, err == nil, err
	}

	owner := p.owner
	typeName, member := splitQualified(name)
	if typeName != "" {
		t, ok := owner.ns.schema.LookupType(typeName)
		if !ok {
			return nil, false, fmt.Errorf("%w: %w: %s", ErrConstantNotFound, ErrTypeNotFound, typeName)
		}
		owner = t
	}

	c, ok := owner.Constant(member)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s.%s", ErrConstantNotFound, owner.fullName, member)
	}
	value, err := c.get(nil)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// LiteralMechanism returns the descriptor's literal, if any
type LiteralMechanism struct{}

func (m *LiteralMechanism) Source() Source { return SourceLiteral }

func (m *LiteralMechanism) Resolve(p *Property, _ []string) (any, bool, error) {
	switch p.desc.Literal.Kind {
	case LiteralNull:
		return nil, true, nil
	case LiteralValue:
		return p.desc.Literal.Value, true, nil
	default:
		return nil, false, nil
	}
}
