package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages provider definitions and provides lookup by key.
type Registry struct {
	providers map[string]*Provider
	mu        sync.RWMutex
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*Provider),
	}
}

// NewDefaultRegistry creates a registry preloaded with the built-in providers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range Builtins() {
		r.Register(p)
	}
	return r
}

// Register adds a provider to the registry.
// If a provider with the same name exists, it will be replaced.
func (r *Registry) Register(p *Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name] = p
}

// RegisterDefinitions builds and registers every definition, replacing
// providers with the same key.
func (r *Registry) RegisterDefinitions(defs map[string]Definition) error {
	for name, def := range defs {
		p, err := def.Build(name)
		if err != nil {
			return err
		}
		r.Register(p)
	}
	return nil
}

// Get retrieves a provider by key.
// Returns nil if not found.
func (r *Registry) Get(name string) *Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// Resolve retrieves a provider by key or returns an error naming it.
func (r *Registry) Resolve(name string) (*Provider, error) {
	if p := r.Get(name); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("provider %q not found in configuration", name)
}

// List returns all registered provider keys in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// Builtins returns the providers known without any configuration.
func Builtins() []*Provider {
	return []*Provider{
		{
			Name:               "anyrouter",
			Domain:             "https://anyrouter.top",
			LoginPath:          DefaultLoginPath,
			SignInPath:         DefaultSignInPath,
			UserInfoPath:       DefaultUserInfoPath,
			APIUserKey:         DefaultAPIUserKey,
			WAFCookieNames:     []string{"acw_tc", "cdn_sec_tc", "acw_sc__v2"},
			NeedsWAFCookies:    true,
			NeedsManualCheckIn: true,
		},
		{
			Name:               "agentrouter",
			Domain:             "https://agentrouter.org",
			LoginPath:          DefaultLoginPath,
			UserInfoPath:       DefaultUserInfoPath,
			APIUserKey:         DefaultAPIUserKey,
			WAFCookieNames:     []string{"acw_tc"},
			NeedsWAFCookies:    true,
			NeedsManualCheckIn: false,
		},
	}
}
