package timetagger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
)

// ErrParametersNotInitialized indicates a handle was accessed before
// all its prerequisite parameters were given valid values.
var ErrParametersNotInitialized = errors.New("parameters need to be initialized first")

// CachedHandle lazily computes an SDK object and caches it.
//
// The compute function runs on first access and whenever the handle
// has been invalidated since. Before computing, every prerequisite
// parameter must hold a cached value that passes its validator; the
// usual pattern is to declare the parameters the compute function
// reads and invalidate the handle from their set side effects.
type CachedHandle struct {
	compute func() (any, error)
	prereqs []*parameter.Parameter

	mu    sync.Mutex
	value any
	valid bool
}

// NewCachedHandle creates a handle computed by fn, gated on the given
// prerequisite parameters.
func NewCachedHandle(fn func() (any, error), prereqs ...*parameter.Parameter) *CachedHandle {
	return &CachedHandle{compute: fn, prereqs: prereqs}
}

// Get returns the cached SDK object, computing it if necessary.
//
// If any prerequisite parameter is uninitialized or holds a value its
// validator rejects, Get fails naming every unmet prerequisite.
func (h *CachedHandle) Get() (any, error) {
	if err := h.checkPrerequisites(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.valid {
		return h.value, nil
	}

	value, err := h.compute()
	if err != nil {
		return nil, err
	}
	h.value = value
	h.valid = true
	return value, nil
}

// Valid reports whether a computed object is currently cached.
func (h *CachedHandle) Valid() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.valid
}

// Invalidate drops the cached object so the next Get recomputes it.
// It is safe to call from a parameter set side effect.
func (h *CachedHandle) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.value = nil
	h.valid = false
}

func (h *CachedHandle) checkPrerequisites() error {
	var unmet []string
	for _, p := range h.prereqs {
		value, _, ok := p.Cached()
		if !ok {
			unmet = append(unmet, p.Name())
			continue
		}
		if err := p.Validate(value); err != nil {
			unmet = append(unmet, p.Name())
		}
	}
	if len(unmet) == 0 {
		return nil
	}
	sort.Strings(unmet)
	return fmt.Errorf("%w: %s", ErrParametersNotInitialized, strings.Join(unmet, ","))
}
