package fs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
)

// Factory constructs a backend for the given raw URI. Factories are bound to
// a scheme at registration time (typically by the configuration layer, which
// closes over the backend's decoded options) and receive the statistics
// registry so every instance shares the per-(scheme, authority) record.
type Factory func(ctx context.Context, rawURI string, stats *StatsRegistry) (Backend, error)

// Registry resolves a backend implementation from a scheme. It is the single
// dynamic-dispatch seam of the contract layer: callers depend only on the
// returned Backend interface afterward.
//
// Each backend type registers a factory under its scheme at startup;
// resolution is a plain mapping lookup plus a cached factory call, with no
// runtime type introspection. Constructed backends are memoized per
// (scheme, authority) so repeated resolution avoids repeated construction
// cost; the cache is pure performance memoization, never a correctness
// boundary.
//
// Registries have an explicit lifecycle: construct one at process start with
// the process's StatsRegistry and inject it where backends are resolved.
// Tests build isolated registries instead of sharing process globals.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	backends  map[string]Backend
	stats     *StatsRegistry
}

// NewRegistry creates an empty registry whose backends will share the given
// statistics registry.
func NewRegistry(stats *StatsRegistry) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		backends:  make(map[string]Backend),
		stats:     stats,
	}
}

// Register binds a factory to a scheme. Returns an error if the scheme is
// empty, the factory is nil, or the scheme is already bound.
func (r *Registry) Register(scheme string, factory Factory) error {
	if scheme == "" {
		return fmt.Errorf("cannot register backend factory with empty scheme")
	}
	if factory == nil {
		return fmt.Errorf("cannot register nil backend factory for scheme %q", scheme)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[scheme]; exists {
		return fmt.Errorf("backend factory for scheme %q already registered", scheme)
	}
	r.factories[scheme] = factory
	return nil
}

// Schemes returns all registered schemes. The returned slice is a copy and
// safe to modify.
func (r *Registry) Schemes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	schemes := make([]string, 0, len(r.factories))
	for scheme := range r.factories {
		schemes = append(schemes, scheme)
	}
	return schemes
}

// Resolve returns the backend addressing the given URI, constructing it on
// first use. Resolution fails with ErrUnsupportedBackend when no factory is
// bound to the URI's scheme.
//
// A construction failure that is already a domain *Error propagates as-is;
// any other failure is wrapped as an opaque construction error. The lock is
// never held across the factory call.
func (r *Registry) Resolve(ctx context.Context, rawURI string) (Backend, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return nil, Errorf(ErrInvalidArgument, rawURI, "malformed uri: %v", err)
	}
	if u.Scheme == "" {
		return nil, Errorf(ErrInvalidArgument, rawURI, "uri without scheme")
	}

	key := u.Scheme + "://" + u.Host

	r.mu.Lock()
	if b, ok := r.backends[key]; ok {
		r.mu.Unlock()
		return b, nil
	}
	factory, ok := r.factories[u.Scheme]
	r.mu.Unlock()

	if !ok {
		return nil, Errorf(ErrUnsupportedBackend, rawURI,
			"no backend registered for scheme %q", u.Scheme)
	}

	b, err := factory(ctx, rawURI, r.stats)
	if err != nil {
		var fsErr *Error
		if errors.As(err, &fsErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to construct %q backend: %w", u.Scheme, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have constructed the same backend while the lock
	// was released; keep the first one so all callers share an instance.
	if existing, ok := r.backends[key]; ok {
		return existing, nil
	}
	r.backends[key] = b
	return b, nil
}

// Stats returns the statistics registry shared by all resolved backends.
func (r *Registry) Stats() *StatsRegistry {
	return r.stats
}
