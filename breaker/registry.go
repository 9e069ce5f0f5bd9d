package breaker

import "sync"

// Registry owns the set of breakers keyed by dependency name. Breakers are
// created lazily on first use with the registry's default configuration and
// live for the process lifetime; dependency count is small and bounded by
// configuration, so there is no eviction.
type Registry struct {
	mu       sync.RWMutex
	defaults Config
	breakers map[string]*Breaker
}

// NewRegistry creates a Registry whose breakers use the given defaults.
func NewRegistry(defaults Config) *Registry {
	return &Registry{
		defaults: defaults.withDefaults(),
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for the dependency, creating it on first use.
// Concurrent first use for the same key yields a single shared breaker.
func (r *Registry) Get(dependency string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[dependency]
	r.mu.RUnlock()

	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check: another goroutine may have created it
	if b, ok = r.breakers[dependency]; ok {
		return b
	}

	b = New(dependency, r.defaults)
	r.breakers[dependency] = b
	return b
}

// Snapshot returns the current state of every known breaker.
func (r *Registry) Snapshot() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make(map[string]State, len(r.breakers))
	for dep, b := range r.breakers {
		states[dep] = b.State()
	}
	return states
}

// Reset forces every known breaker back to closed. Existing references stay
// valid; breakers are reset in place, not replaced.
func (r *Registry) Reset() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.breakers {
		b.Reset()
	}
}
