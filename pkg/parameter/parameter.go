package parameter

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Parameter errors.
var (
	// ErrNotGettable indicates the parameter has no getter.
	ErrNotGettable = errors.New("parameter is not gettable")

	// ErrNotSettable indicates the parameter has no setter.
	ErrNotSettable = errors.New("parameter is not settable")
)

// GetFunc reads the raw value from the instrument.
type GetFunc func() (any, error)

// SetFunc writes the raw value to the instrument.
type SetFunc func(value any) error

// ParseFunc converts between raw and user-facing representations.
type ParseFunc func(value any) (any, error)

// SideEffectFunc runs on every successful Set with the user-facing value.
type SideEffectFunc func(value any)

// Spec declares a parameter. All conversion and validation rules are fixed
// here; no per-call logic exists outside them.
type Spec struct {
	// Name identifies the parameter within its instrument.
	Name string

	// Label is the human-readable name. Defaults to Name.
	Label string

	// Unit is the physical unit of the user-facing value (e.g. "V", "ms").
	Unit string

	// Vals validates user-facing values before any transport write.
	Vals Validator

	// Get reads the raw value. Nil makes the parameter write-only.
	Get GetFunc

	// Set writes the raw value. Nil makes the parameter read-only.
	Set SetFunc

	// GetParser converts the getter result (applied before Mapping).
	GetParser ParseFunc

	// SetParser converts the outgoing value (applied after Mapping).
	SetParser ParseFunc

	// Mapping translates between user values and instrument tokens.
	Mapping *ValueMapping

	// SetSideEffect runs on every successful Set (after the write, or
	// before it when SideEffectBefore is set).
	SetSideEffect SideEffectFunc

	// SideEffectBefore runs SetSideEffect before the setter.
	SideEffectBefore bool

	// SnapshotExclude omits the parameter from registry snapshots.
	// Used for derived readings whose cache is never authoritative.
	SnapshotExclude bool
}

// Parameter is a named, typed, unit-tagged handle to one instrument
// quantity. Safe for concurrent use; calls on one parameter are serialized.
type Parameter struct {
	spec Spec

	mu        sync.Mutex
	cached    any
	cachedAt  time.Time
	hasCached bool
}

// New creates a parameter from its spec.
func New(spec Spec) *Parameter {
	if spec.Label == "" {
		spec.Label = spec.Name
	}
	return &Parameter{spec: spec}
}

// Name returns the parameter name.
func (p *Parameter) Name() string { return p.spec.Name }

// Label returns the human-readable label.
func (p *Parameter) Label() string { return p.spec.Label }

// Unit returns the unit of the user-facing value.
func (p *Parameter) Unit() string { return p.spec.Unit }

// Gettable reports whether the parameter has a getter.
func (p *Parameter) Gettable() bool { return p.spec.Get != nil }

// Settable reports whether the parameter has a setter.
func (p *Parameter) Settable() bool { return p.spec.Set != nil }

// Validator returns the declared validator, or nil.
func (p *Parameter) Validator() Validator { return p.spec.Vals }

// Validate checks a candidate value against the declared validator.
// Parameters without a validator accept everything.
func (p *Parameter) Validate(value any) error {
	if p.spec.Vals == nil {
		return nil
	}
	if err := p.spec.Vals.Validate(value); err != nil {
		return fmt.Errorf("parameter %s: %w", p.spec.Name, err)
	}
	return nil
}

// Get reads the value from the instrument, converts it to the user-facing
// representation, and updates the cache.
func (p *Parameter) Get() (any, error) {
	if p.spec.Get == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotGettable, p.spec.Name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	raw, err := p.spec.Get()
	if err != nil {
		return nil, err
	}

	value := raw
	if p.spec.GetParser != nil {
		if value, err = p.spec.GetParser(value); err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.spec.Name, err)
		}
	}
	if p.spec.Mapping != nil {
		token, ok := value.(string)
		if !ok {
			token = fmt.Sprintf("%v", value)
		}
		if value, err = p.spec.Mapping.FromRaw(token); err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.spec.Name, err)
		}
	}

	p.cached = value
	p.cachedAt = time.Now()
	p.hasCached = true
	return value, nil
}

// Set validates the user-facing value, converts it to the raw
// representation and writes it to the instrument. Validation failure
// happens before any transport write.
func (p *Parameter) Set(value any) error {
	if p.spec.Set == nil {
		return fmt.Errorf("%w: %s", ErrNotSettable, p.spec.Name)
	}
	if err := p.Validate(value); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	raw := value
	if p.spec.Mapping != nil {
		token, err := p.spec.Mapping.ToRaw(raw)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", p.spec.Name, err)
		}
		raw = token
	}
	if p.spec.SetParser != nil {
		var err error
		if raw, err = p.spec.SetParser(raw); err != nil {
			return fmt.Errorf("parameter %s: %w", p.spec.Name, err)
		}
	}

	if p.spec.SetSideEffect != nil && p.spec.SideEffectBefore {
		p.spec.SetSideEffect(value)
	}

	if err := p.spec.Set(raw); err != nil {
		return err
	}

	if p.spec.SetSideEffect != nil && !p.spec.SideEffectBefore {
		p.spec.SetSideEffect(value)
	}

	p.cached = value
	p.cachedAt = time.Now()
	p.hasCached = true
	return nil
}

// GetLatest returns the cached value if it is younger than maxAge,
// otherwise performs a fresh Get. maxAge <= 0 always refreshes.
func (p *Parameter) GetLatest(maxAge time.Duration) (any, error) {
	p.mu.Lock()
	if p.hasCached && maxAge > 0 && time.Since(p.cachedAt) <= maxAge {
		value := p.cached
		p.mu.Unlock()
		return value, nil
	}
	p.mu.Unlock()
	return p.Get()
}

// Cached returns the cached value and its timestamp.
// ok is false if the parameter has never been read or set.
func (p *Parameter) Cached() (value any, at time.Time, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cached, p.cachedAt, p.hasCached
}

// Invalidate drops the cached value, forcing the next GetLatest to hit
// the instrument.
func (p *Parameter) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
	p.cachedAt = time.Time{}
	p.hasCached = false
}

// snapshotExcluded reports whether the parameter opted out of snapshots.
func (p *Parameter) snapshotExcluded() bool { return p.spec.SnapshotExclude }

// String returns a short description for debugging.
func (p *Parameter) String() string {
	if p.spec.Unit != "" {
		return fmt.Sprintf("%s (%s)", p.spec.Name, p.spec.Unit)
	}
	return p.spec.Name
}
