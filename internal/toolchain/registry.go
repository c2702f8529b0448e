package toolchain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Norgate-AV/mint/internal/codes"
)

// Registry maps language keys to toolchain factories. It is populated once
// at startup and read-only afterwards.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register associates key with factory
func (r *Registry) Register(key string, factory Factory) error {
	if key == "" {
		return fmt.Errorf("toolchain key must not be empty")
	}

	if factory == nil {
		return fmt.Errorf("toolchain %s: nil factory", key)
	}

	if _, ok := r.factories[key]; ok {
		return fmt.Errorf("toolchain %s already registered", key)
	}

	r.factories[key] = factory
	return nil
}

// Get returns the factory for key, or a ToolchainNotFound error naming every registered key
func (r *Registry) Get(key string) (Factory, error) {
	factory, ok := r.factories[key]
	if !ok {
		return nil, codes.New(codes.ToolchainNotFound,
			"unsupported toolchain %q. Available: %s", key, strings.Join(r.Available(), ", "))
	}

	return factory, nil
}

// New looks up key and constructs the toolchain against env
func (r *Registry) New(key string, env Env) (Toolchain, error) {
	factory, err := r.Get(key)
	if err != nil {
		return nil, err
	}

	return factory(env)
}

// Has reports whether key is registered
func (r *Registry) Has(key string) bool {
	_, ok := r.factories[key]
	return ok
}

// Available returns the registered keys in sorted order
func (r *Registry) Available() []string {
	keys := make([]string, 0, len(r.factories))
	for key := range r.factories {
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys
}
