package agent

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tailored-agentic-units/studyplan/core/config"
)

// Registry maps provider names to agent factories. Thread-safe for
// concurrent access.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

var providers = NewRegistry()

// Default returns the process-wide registry that providers join from init.
func Default() *Registry {
	return providers
}

// Register adds a provider factory to the default registry.
func Register(name string, factory Factory) error {
	return providers.Register(name, factory)
}

// New builds an agent through the default registry.
func New(cfg *config.AgentConfig, opts ...Option) (Agent, error) {
	return providers.New(cfg, opts...)
}

// Register adds a named provider factory.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return ErrEmptyProviderName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrProviderExists, name)
	}

	r.factories[name] = factory
	return nil
}

// Replace swaps the factory of an existing provider.
func (r *Registry) Replace(name string, factory Factory) error {
	if name == "" {
		return ErrEmptyProviderName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; !exists {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}

	r.factories[name] = factory
	return nil
}

// Unregister removes a provider.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; !exists {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}

	delete(r.factories, name)
	return nil
}

// List returns the registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds an agent with the factory named by cfg's provider.
// A fresh agent is returned on every call so credentials never leak
// between callers.
func (r *Registry) New(cfg *config.AgentConfig, opts ...Option) (Agent, error) {
	if cfg == nil {
		defaults := config.DefaultAgentConfig()
		cfg = &defaults
	}

	name := cfg.ProviderName()

	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}

	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	a, err := factory(cfg, o)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s agent: %w", name, err)
	}
	return a, nil
}
