package timetagger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrInvalidKindName indicates a module kind name outside the naming
// scheme. Kind names must end in "Measurement" or "VirtualChannel" so
// station configuration can tell the two apart.
var ErrInvalidKindName = errors.New(
	`module kind name must end in "Measurement" or "VirtualChannel"`)

// ModuleFactory creates a module of a registered kind under a parent
// tagger connection.
type ModuleFactory func(name string, tagger TaggerAPI) (any, error)

// Registry enumerates the module kinds available to a station.
// Kinds register during package init; afterwards the registry is
// effectively read-only.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ModuleFactory
}

// NewRegistry creates an empty module-kind registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ModuleFactory)}
}

// Register adds a module kind. Registering the same kind twice keeps
// the first factory. A kind name outside the naming scheme is a
// definition error.
func (r *Registry) Register(kind string, factory ModuleFactory) error {
	if !strings.HasSuffix(kind, "Measurement") && !strings.HasSuffix(kind, "VirtualChannel") {
		return fmt.Errorf("%w: %q", ErrInvalidKindName, kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[kind]; ok {
		return nil
	}
	r.factories[kind] = factory
	return nil
}

// MustRegister is Register panicking on definition errors. Intended
// for package init blocks.
func (r *Registry) MustRegister(kind string, factory ModuleFactory) {
	if err := r.Register(kind, factory); err != nil {
		panic(err)
	}
}

// Lookup returns the factory for a kind.
func (r *Registry) Lookup(kind string) (ModuleFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[kind]
	return factory, ok
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
