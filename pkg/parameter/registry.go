package parameter

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry errors.
var (
	// ErrDuplicateParameter indicates a name collision in a registry.
	ErrDuplicateParameter = errors.New("duplicate parameter name")

	// ErrParameterNotFound indicates an unknown parameter name.
	ErrParameterNotFound = errors.New("parameter not found")
)

// Registry holds the parameters of one instrument, indexed by name.
type Registry struct {
	mu     sync.RWMutex
	params map[string]*Parameter
}

// NewRegistry creates an empty parameter registry.
func NewRegistry() *Registry {
	return &Registry{params: make(map[string]*Parameter)}
}

// Add registers a parameter. Name collisions are an error.
func (r *Registry) Add(p *Parameter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.params[p.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateParameter, p.Name())
	}
	r.params[p.Name()] = p
	return nil
}

// MustAdd registers a parameter and panics on a name collision.
// Intended for device constructors where a collision is a programming error.
func (r *Registry) MustAdd(p *Parameter) *Parameter {
	if err := r.Add(p); err != nil {
		panic(err)
	}
	return p
}

// Get returns a parameter by name.
func (r *Registry) Get(name string) (*Parameter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.params[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrParameterNotFound, name)
	}
	return p, nil
}

// Names returns all parameter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.params))
	for name := range r.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered parameters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.params)
}

// Snapshot captures the cached state of every snapshottable parameter.
type Snapshot map[string]ParameterSnapshot

// ParameterSnapshot is the serialized state of one parameter.
type ParameterSnapshot struct {
	// Value is the cached user-facing value (nil if never read).
	Value any `json:"value" cbor:"1,keyasint"`

	// Unit is the declared unit.
	Unit string `json:"unit,omitempty" cbor:"2,keyasint,omitempty"`

	// Label is the human-readable label.
	Label string `json:"label,omitempty" cbor:"3,keyasint,omitempty"`

	// Timestamp of the cached value (zero if never read).
	Timestamp time.Time `json:"timestamp,omitempty" cbor:"4,keyasint,omitempty"`
}

// Snapshot returns the cached state of all parameters that did not opt out.
// It never touches the instrument.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(Snapshot, len(r.params))
	for name, p := range r.params {
		if p.snapshotExcluded() {
			continue
		}
		value, at, _ := p.Cached()
		snap[name] = ParameterSnapshot{
			Value:     value,
			Unit:      p.Unit(),
			Label:     p.Label(),
			Timestamp: at,
		}
	}
	return snap
}
