package parameter

import (
	"errors"
	"fmt"
	"math"
)

// Validator errors.
var (
	// ErrValueType indicates the value has the wrong Go type.
	ErrValueType = errors.New("invalid value type")

	// ErrOutOfRange indicates a numeric value outside the declared range.
	ErrOutOfRange = errors.New("value out of range")

	// ErrNotInEnum indicates a value not in the declared enumeration.
	ErrNotInEnum = errors.New("value not in enumeration")
)

// Validator checks a candidate value against the rules declared for a
// parameter. Validators are fixed at parameter construction; there is no
// other validation path.
type Validator interface {
	// Validate returns nil if the value is acceptable.
	Validate(value any) error
}

// numbers accepts any numeric value within [min, max].
type numbers struct {
	min, max float64
}

// Numbers returns a validator accepting numeric values in [min, max].
func Numbers(min, max float64) Validator {
	return numbers{min: min, max: max}
}

// AnyNumber returns a validator accepting any numeric value.
func AnyNumber() Validator {
	return numbers{min: math.Inf(-1), max: math.Inf(1)}
}

func (n numbers) Validate(value any) error {
	v, ok := toFloat64(value)
	if !ok {
		return fmt.Errorf("%w: expected number, got %T", ErrValueType, value)
	}
	if v < n.min || v > n.max {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, value, n.min, n.max)
	}
	return nil
}

func (n numbers) String() string {
	return fmt.Sprintf("Numbers[%v, %v]", n.min, n.max)
}

// ints accepts integer values within [min, max].
type ints struct {
	min, max int64
}

// Ints returns a validator accepting integer values in [min, max].
func Ints(min, max int64) Validator {
	return ints{min: min, max: max}
}

// AnyInt returns a validator accepting any integer value.
func AnyInt() Validator {
	return ints{min: math.MinInt64, max: math.MaxInt64}
}

func (i ints) Validate(value any) error {
	v, ok := toInt64(value)
	if !ok {
		return fmt.Errorf("%w: expected integer, got %T", ErrValueType, value)
	}
	if v < i.min || v > i.max {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, value, i.min, i.max)
	}
	return nil
}

func (i ints) String() string {
	return fmt.Sprintf("Ints[%d, %d]", i.min, i.max)
}

// enum accepts only the listed values.
type enum struct {
	choices []any
}

// Enum returns a validator accepting only the listed values.
// Numeric choices match across numeric Go types (Enum(200) accepts 200.0).
func Enum(choices ...any) Validator {
	return enum{choices: choices}
}

func (e enum) Validate(value any) error {
	for _, c := range e.choices {
		if c == value {
			return nil
		}
		// Numeric equality across types.
		cv, cok := toFloat64(c)
		vv, vok := toFloat64(value)
		if cok && vok && cv == vv {
			return nil
		}
	}
	return fmt.Errorf("%w: %v not in %v", ErrNotInEnum, value, e.choices)
}

func (e enum) String() string {
	return fmt.Sprintf("Enum%v", e.choices)
}

// strings accepts any string value.
type stringsValidator struct{}

// Strings returns a validator accepting any string value.
func Strings() Validator {
	return stringsValidator{}
}

func (stringsValidator) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("%w: expected string, got %T", ErrValueType, value)
	}
	return nil
}

func (stringsValidator) String() string { return "Strings" }

// boolValidator accepts bool values.
type boolValidator struct{}

// Bool returns a validator accepting bool values.
func Bool() Validator {
	return boolValidator{}
}

func (boolValidator) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("%w: expected bool, got %T", ErrValueType, value)
	}
	return nil
}

func (boolValidator) String() string { return "Bool" }

// anything accepts every value.
type anything struct{}

// Anything returns a validator that accepts every value.
func Anything() Validator {
	return anything{}
}

func (anything) Validate(any) error { return nil }

func (anything) String() string { return "Anything" }

// Numeric coercion helpers.

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}
