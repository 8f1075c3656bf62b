// Package strategy defines the Generator interface that turns a sentiment
// reading and optional market snapshot into a trading signal, and a
// Registry for selecting a generator by name.
package strategy

import (
	"fmt"
	"sort"
	"sync"

	"sentitrade/internal/domain"
)

// Generator is the interface that all signal generators must implement.
type Generator interface {
	// Name returns the unique identifier for this generator.
	Name() string

	// Generate produces a signal for ticker. snap is nil when no market data
	// is available. The result must carry a valid action; anything the
	// generator is unsure about is HOLD.
	Generate(ticker string, s domain.Sentiment, snap *domain.Snapshot) domain.Signal
}

// Registry holds a named collection of generators for lookup and enumeration.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
}

// NewRegistry creates an empty generator Registry.
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]Generator),
	}
}

// Register adds a generator to the registry, keyed by its Name().
func (r *Registry) Register(g Generator) {
	r.mu.Lock()
	r.generators[g.Name()] = g
	r.mu.Unlock()
}

// Get retrieves a generator by name. The second return value indicates
// whether the generator was found.
func (r *Registry) Get(name string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[name]
	return g, ok
}

// Select is Get that fails with the list of known names.
func (r *Registry) Select(name string) (Generator, error) {
	if g, ok := r.Get(name); ok {
		return g, nil
	}
	return nil, fmt.Errorf("unknown strategy %q (available: %v)", name, r.List())
}

// List returns a sorted slice of all registered generator names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
