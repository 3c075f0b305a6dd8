package parameter

import (
	"errors"
	"fmt"
)

// Mapping errors.
var (
	// ErrUnmappedValue indicates a user value with no raw token.
	ErrUnmappedValue = errors.New("value has no raw mapping")

	// ErrUnmappedToken indicates an instrument token with no user value.
	ErrUnmappedToken = errors.New("token has no value mapping")
)

// ValueMapping is a bidirectional mapping between user-facing values and the
// raw tokens the instrument understands (e.g. true <-> "1"). Both directions
// must be unambiguous.
type ValueMapping struct {
	toRaw   map[any]string
	fromRaw map[string]any
}

// NewValueMapping builds a mapping from user value to raw token.
// The inverse direction is derived; duplicate tokens keep the first entry.
func NewValueMapping(pairs map[any]string) *ValueMapping {
	m := &ValueMapping{
		toRaw:   make(map[any]string, len(pairs)),
		fromRaw: make(map[string]any, len(pairs)),
	}
	for value, token := range pairs {
		m.toRaw[value] = token
		if _, exists := m.fromRaw[token]; !exists {
			m.fromRaw[token] = value
		}
	}
	return m
}

// OnOffMapping maps bool true/false to the given instrument tokens.
// SCPI instruments commonly report "1"/"0" but also accept "ON"/"OFF".
func OnOffMapping(onToken, offToken string) *ValueMapping {
	return NewValueMapping(map[any]string{
		true:  onToken,
		false: offToken,
	})
}

// ToRaw converts a user value to its instrument token.
func (m *ValueMapping) ToRaw(value any) (string, error) {
	token, ok := m.toRaw[value]
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrUnmappedValue, value)
	}
	return token, nil
}

// FromRaw converts an instrument token back to its user value.
func (m *ValueMapping) FromRaw(token string) (any, error) {
	value, ok := m.fromRaw[token]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnmappedToken, token)
	}
	return value, nil
}
