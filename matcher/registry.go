package matcher

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

// Matcher computes similarity results between the source and target units
// named by params. A matcher is bound to one storage session and is used by
// a single goroutine for one job.
type Matcher interface {
	Match(ctx context.Context, jobID core.ID, params core.SearchParams) ([]*core.Match, error)
}

// Factory builds a matcher bound to a session.
type Factory func(sess storage.Session) Matcher

// Registry maps algorithm names to matcher factories.
// It is populated at startup and safe for concurrent lookups.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("%w: %q", ErrInvalidRegistration, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateAlgorithm, name)
	}
	r.factories[name] = factory
	return nil
}

// New builds the matcher registered under name, bound to sess.
// Returns ErrUnknownAlgorithm if nothing is registered under name.
func (r *Registry) New(name string, sess storage.Session) (Matcher, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return factory(sess), nil
}

// Names returns the registered algorithm names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
