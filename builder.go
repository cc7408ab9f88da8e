// FILE: lixenwraith/propcfg/builder.go
package propcfg

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
)

// Builder provides a fluent interface for building engines
type Builder struct {
	lookup   LookupFunc
	props    *Properties
	files    []string
	fileOpts FileOptions
	chain    Chain
	reg      prometheus.Registerer
	err      error
}

// NewBuilder creates a builder for an engine reading the process environment
func NewBuilder() *Builder {
	return &Builder{
		lookup: os.LookupEnv,
		props:  NewProperties(),
	}
}

// WithEnvLookup replaces the environment lookup function
func (b *Builder) WithEnvLookup(fn LookupFunc) *Builder {
	if fn == nil {
		b.err = errors.Join(b.err, fmt.Errorf("nil environment lookup"))
		return b
	}
	b.lookup = fn
	return b
}

// WithProperties merges entries into the property store
func (b *Builder) WithProperties(props *Properties) *Builder {
	b.props.Merge(props)
	return b
}

// WithPropertiesFile loads a TOML, YAML or JSON file into the property store at build time.
// Later files override earlier ones. A missing file is not fatal.
func (b *Builder) WithPropertiesFile(path string) *Builder {
	b.files = append(b.files, path)
	return b
}

// WithFileOptions sets the options used for properties files
func (b *Builder) WithFileOptions(opts FileOptions) *Builder {
	b.fileOpts = opts
	return b
}

// WithArgsProperties collects "-Dkey=value" arguments into the property store
func (b *Builder) WithArgsProperties(args []string) *Builder {
	b.props.Merge(ParseProperties(args))
	return b
}

// WithChain replaces the default mechanism chain
func (b *Builder) WithChain(mechanisms ...Mechanism) *Builder {
	b.chain = Chain(mechanisms)
	return b
}

// WithMetrics registers event counters with reg
func (b *Builder) WithMetrics(reg prometheus.Registerer) *Builder {
	b.reg = reg
	return b
}

// Build creates the engine. If only properties files are missing, the engine
// is returned together with an error matching ErrPropertiesNotFound.
func (b *Builder) Build() (*Engine, error) {
	if b.err != nil {
		return nil, b.err
	}

	var loadErrors []error
	if len(b.files) > 0 {
		layered := NewProperties()
		for _, path := range b.files {
			props, err := LoadPropertiesWithOptions(path, b.fileOpts)
			if err != nil {
				if errors.Is(err, ErrPropertiesNotFound) {
					loadErrors = append(loadErrors, err)
					continue
				}
				return nil, err
			}
			layered.Merge(props)
		}
		// explicit properties and -D arguments win over every file
		layered.Merge(b.props)
		b.props = layered
	}

	var e *Engine
	if b.chain != nil {
		e = newEngine(b.chain)
	} else {
		e = newEngine(DefaultChain(b.lookup, b.props))
		e.props = b.props
	}

	if b.reg != nil {
		m, err := newMetrics(b.reg)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		e.metrics = m
	}

	return e, errors.Join(loadErrors...)
}

// MustBuild is like Build but panics on error.
// Missing properties files are tolerated.
func (b *Builder) MustBuild() *Engine {
	e, err := b.Build()
	if err != nil && !errors.Is(err, ErrPropertiesNotFound) {
		panic(fmt.Sprintf("propcfg build failed: %v", err))
	}
	return e
}
