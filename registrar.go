// FILE: lixenwraith/propcfg/registrar.go
package propcfg

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Registrar stores callback registrations at five scopes and the remote key index.
// Registering nil callbacks removes the registration at that scope.
type Registrar struct {
	mu         sync.RWMutex
	global     Callbacks
	namespaces map[string]Callbacks
	types      map[*Type]Callbacks
	instances  map[uuid.UUID]Callbacks
	properties map[*Property]Callbacks
	remote     map[string]*Property
	blocked    map[string]*Property // static properties refused by RegisterRemote
}

// NewRegistrar creates an empty registrar
func NewRegistrar() *Registrar {
	return &Registrar{
		namespaces: make(map[string]Callbacks),
		types:      make(map[*Type]Callbacks),
		instances:  make(map[uuid.UUID]Callbacks),
		properties: make(map[*Property]Callbacks),
		remote:     make(map[string]*Property),
		blocked:    make(map[string]*Property),
	}
}

// RegisterGlobal sets the fallback registration
func (r *Registrar) RegisterGlobal(cbs Callbacks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = cbs
}

// RegisterNamespace registers callbacks for every type under path
func (r *Registrar) RegisterNamespace(path string, cbs Callbacks) {
	path = strings.Trim(path, ".")
	r.mu.Lock()
	defer r.mu.Unlock()
	setScope(r.namespaces, path, cbs)
}

// RegisterType registers callbacks for every property of t
func (r *Registrar) RegisterType(t *Type, cbs Callbacks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	setScope(r.types, t, cbs)
}

// RegisterInstance registers callbacks for the properties of one owner instance
func (r *Registrar) RegisterInstance(in *Instance, cbs Callbacks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	setScope(r.instances, in.id, cbs)
}

// RegisterProperty registers callbacks for a single property
func (r *Registrar) RegisterProperty(p *Property, cbs Callbacks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	setScope(r.properties, p, cbs)
}

func setScope[K comparable](m map[K]Callbacks, key K, cbs Callbacks) {
	if cbs == nil {
		delete(m, key)
		return
	}
	m[key] = cbs
}

// Lookup returns the most specific registration governing p:
// property, then owner instance, then type, then namespace ancestry, then global
func (r *Registrar) Lookup(owner *Instance, p *Property) (Callbacks, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cbs, ok := r.properties[p]; ok {
		return cbs, true
	}
	if owner != nil {
		if cbs, ok := r.instances[owner.id]; ok {
			return cbs, true
		}
	}
	if cbs, ok := r.types[p.owner]; ok {
		return cbs, true
	}
	for _, path := range ancestors(p.owner.ns.path) {
		if cbs, ok := r.namespaces[path]; ok {
			return cbs, true
		}
	}
	if r.global != nil {
		return r.global, true
	}
	return nil, false
}

// RemoteKey returns the key p is exposed under: the descriptor's RemoteKey or its full name
func RemoteKey(p *Property) string {
	if p.desc.RemoteKey != "" {
		return p.desc.RemoteKey
	}
	return p.FullName()
}

// RegisterRemote exposes a static, non-blocked property on the remote surface.
// Registering the same property twice is a no-op. A blocked property is
// remembered so remote writes to its key can be refused as forbidden.
func (r *Registrar) RegisterRemote(p *Property) (string, error) {
	if !p.static {
		return "", fmt.Errorf("%w: %s", ErrMissingInstance, p.FullName())
	}

	key := RemoteKey(p)

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.desc.BlockRemote {
		r.blocked[key] = p
		return "", fmt.Errorf("%w: %s", ErrRemoteBlocked, p.FullName())
	}

	if existing, ok := r.remote[key]; ok && existing != p {
		return "", fmt.Errorf("%w: %q is bound to %s", ErrRemoteKeyConflict, key, existing.FullName())
	}
	r.remote[key] = p
	return key, nil
}

// RemoteKeys returns all registered remote keys, sorted
func (r *Registrar) RemoteKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.remote))
	for k := range r.remote {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResolveRemote finds the property registered under key
func (r *Registrar) ResolveRemote(key string) (*Property, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.remote[key]
	return p, ok
}

// RemoteBlocked reports whether key belongs to a property blocked from remote access
func (r *Registrar) RemoteBlocked(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.blocked[key]
	return ok
}
