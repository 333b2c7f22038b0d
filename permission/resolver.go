package permission

import "sync/atomic"

// Resolver holds the active Mapping for one portal instance. It is safe for
// concurrent use; Apply and Reset swap the whole snapshot atomically.
type Resolver struct {
	defaults Mapping
	current  atomic.Pointer[Mapping]
}

// NewResolver returns a Resolver primed with the compiled-in defaults.
func NewResolver() *Resolver {
	return NewResolverWithDefaults(DefaultMapping())
}

// NewResolverWithDefaults returns a Resolver whose Reset, and Apply of an
// empty config, restore defaults instead of the compiled-in mapping.
func NewResolverWithDefaults(defaults Mapping) *Resolver {
	r := &Resolver{defaults: defaults.Clone()}
	m := r.base()
	r.current.Store(&m)
	return r
}

func (r *Resolver) base() Mapping {
	if r.defaults.Routes == nil && r.defaults.Actions == nil {
		return DefaultMapping()
	}
	return r.defaults.Clone()
}

// Mapping returns the active snapshot.
func (r *Resolver) Mapping() Mapping {
	if m := r.current.Load(); m != nil {
		return *m
	}
	return r.base()
}

// Apply replaces the active mapping with one built from cfg and returns it.
// An empty cfg restores the defaults.
func (r *Resolver) Apply(cfg GuardConfig) Mapping {
	if cfg.Empty() {
		m := r.base()
		r.current.Store(&m)
		return m
	}
	m := Apply(cfg)
	r.current.Store(&m)
	return m
}

// Set installs m as the active mapping.
func (r *Resolver) Set(m Mapping) {
	m = m.Clone()
	r.current.Store(&m)
}

// Reset restores the defaults.
func (r *Resolver) Reset() {
	m := r.base()
	r.current.Store(&m)
}

// IsDefault reports whether the active mapping equals the defaults.
func (r *Resolver) IsDefault() bool {
	return r.Mapping().Equal(r.base())
}

func (r *Resolver) HasRoute(route string, roles, perms []string) bool {
	return HasRoutePermission(r.Mapping(), route, roles, perms)
}

func (r *Resolver) HasAction(id string, roles, perms []string) bool {
	return HasActionPermission(r.Mapping(), id, roles, perms)
}
