package parameter

import (
	"errors"
	"testing"
	"time"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		v       Validator
		value   any
		wantErr error
	}{
		{"numbers in range", Numbers(0, 10), 5.0, nil},
		{"numbers int accepted", Numbers(0, 10), 5, nil},
		{"numbers at bounds", Numbers(0, 10), 10.0, nil},
		{"numbers below", Numbers(0, 10), -0.1, ErrOutOfRange},
		{"numbers above", Numbers(0, 10), 10.5, ErrOutOfRange},
		{"numbers wrong type", Numbers(0, 10), "5", ErrValueType},
		{"ints in range", Ints(4, 7), 5, nil},
		{"ints below", Ints(4, 7), 3, ErrOutOfRange},
		{"ints float rejected", Ints(4, 7), 5.0, ErrValueType},
		{"enum hit", Enum("IMM", "TLIN"), "IMM", nil},
		{"enum miss", Enum("IMM", "TLIN"), "EXT", ErrNotInEnum},
		{"enum numeric cross-type", Enum(200, 20, 2, 0.2), 20.0, nil},
		{"enum numeric miss", Enum(200, 20, 2, 0.2), 50.0, ErrNotInEnum},
		{"strings ok", Strings(), "VOLT:DC", nil},
		{"strings wrong type", Strings(), 1, ErrValueType},
		{"bool ok", Bool(), true, nil},
		{"bool wrong type", Bool(), 1, ErrValueType},
		{"anything", Anything(), struct{}{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate(tt.value)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSetValidatesBeforeWrite(t *testing.T) {
	var writes []any
	p := New(Spec{
		Name: "level",
		Vals: Numbers(-210, 210),
		Set: func(v any) error {
			writes = append(writes, v)
			return nil
		},
	})

	if err := p.Set(500.0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if len(writes) != 0 {
		t.Fatalf("setter ran despite validation failure: %v", writes)
	}

	if err := p.Set(12.5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if len(writes) != 1 || writes[0] != 12.5 {
		t.Fatalf("unexpected writes: %v", writes)
	}
}

func TestGetSetMapping(t *testing.T) {
	raw := "0"
	p := New(Spec{
		Name:    "output_enabled",
		Vals:    Bool(),
		Mapping: OnOffMapping("1", "0"),
		Get:     func() (any, error) { return raw, nil },
		Set: func(v any) error {
			raw = v.(string)
			return nil
		},
	})

	v, err := p.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != false {
		t.Fatalf("expected false, got %v", v)
	}

	if err := p.Set(true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if raw != "1" {
		t.Fatalf("expected raw token \"1\", got %q", raw)
	}

	if v, err = p.Get(); err != nil || v != true {
		t.Fatalf("expected true, got %v (err %v)", v, err)
	}
}

func TestGetParser(t *testing.T) {
	p := New(Spec{
		Name: "nplc",
		Get:  func() (any, error) { return "10.0", nil },
		GetParser: func(v any) (any, error) {
			return 10.0, nil
		},
	})

	v, err := p.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != 10.0 {
		t.Fatalf("expected 10.0, got %v", v)
	}
}

func TestNotGettableNotSettable(t *testing.T) {
	readOnly := New(Spec{Name: "ro", Get: func() (any, error) { return 1, nil }})
	if err := readOnly.Set(1); !errors.Is(err, ErrNotSettable) {
		t.Fatalf("expected ErrNotSettable, got %v", err)
	}

	writeOnly := New(Spec{Name: "wo", Set: func(any) error { return nil }})
	if _, err := writeOnly.Get(); !errors.Is(err, ErrNotGettable) {
		t.Fatalf("expected ErrNotGettable, got %v", err)
	}
}

func TestCacheLifecycle(t *testing.T) {
	gets := 0
	p := New(Spec{
		Name: "position",
		Get: func() (any, error) {
			gets++
			return 42.0, nil
		},
	})

	if _, _, ok := p.Cached(); ok {
		t.Fatal("cache should start empty")
	}

	if _, err := p.Get(); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Fresh cache is served without touching the instrument.
	if _, err := p.GetLatest(time.Minute); err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if gets != 1 {
		t.Fatalf("expected 1 instrument read, got %d", gets)
	}

	p.Invalidate()
	if _, _, ok := p.Cached(); ok {
		t.Fatal("cache should be empty after Invalidate")
	}
	if _, err := p.GetLatest(time.Minute); err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if gets != 2 {
		t.Fatalf("expected refresh after Invalidate, got %d reads", gets)
	}
}

func TestSetSideEffectOrdering(t *testing.T) {
	var order []string
	p := New(Spec{
		Name:          "config",
		SetSideEffect: func(any) { order = append(order, "effect") },
		Set: func(any) error {
			order = append(order, "write")
			return nil
		},
	})

	if err := p.Set(1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if len(order) != 2 || order[0] != "write" || order[1] != "effect" {
		t.Fatalf("unexpected order: %v", order)
	}

	order = nil
	before := New(Spec{
		Name:             "config",
		SideEffectBefore: true,
		SetSideEffect:    func(any) { order = append(order, "effect") },
		Set: func(any) error {
			order = append(order, "write")
			return nil
		},
	})
	if err := before.Set(1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if len(order) != 2 || order[0] != "effect" || order[1] != "write" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	a := New(Spec{Name: "alpha", Unit: "V"})
	if err := r.Add(a); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add(New(Spec{Name: "alpha"})); !errors.Is(err, ErrDuplicateParameter) {
		t.Fatalf("expected ErrDuplicateParameter, got %v", err)
	}

	if _, err := r.Get("beta"); !errors.Is(err, ErrParameterNotFound) {
		t.Fatalf("expected ErrParameterNotFound, got %v", err)
	}

	r.MustAdd(New(Spec{Name: "beta"}))
	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestRegistrySnapshot(t *testing.T) {
	r := NewRegistry()

	measured := New(Spec{
		Name:            "sense_current",
		Unit:            "A",
		SnapshotExclude: true,
		Get:             func() (any, error) { return 1e-6, nil },
	})
	level := New(Spec{
		Name: "source_voltage",
		Unit: "V",
		Get:  func() (any, error) { return 1.5, nil },
	})
	r.MustAdd(measured)
	r.MustAdd(level)

	if _, err := measured.Get(); err != nil {
		t.Fatal(err)
	}
	if _, err := level.Get(); err != nil {
		t.Fatal(err)
	}

	snap := r.Snapshot()
	if _, present := snap["sense_current"]; present {
		t.Fatal("excluded parameter appeared in snapshot")
	}
	entry, present := snap["source_voltage"]
	if !present {
		t.Fatal("source_voltage missing from snapshot")
	}
	if entry.Value != 1.5 || entry.Unit != "V" {
		t.Fatalf("unexpected snapshot entry: %+v", entry)
	}
	if entry.Timestamp.IsZero() {
		t.Fatal("snapshot timestamp not set")
	}
}
