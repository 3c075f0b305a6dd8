// Package parameter implements the generic instrument parameter model.
//
// # Parameters
//
// A Parameter is a named, typed, unit-tagged handle to a single physical
// quantity or setting on an instrument. It pairs an optional getter and
// setter with a declarative validator and an optional bidirectional value
// mapping:
//
//	nplc := parameter.New(parameter.Spec{
//	    Name: "nplc",
//	    Unit: "NPLC",
//	    Vals: parameter.Numbers(0.01, 10),
//	    Get:  func() (any, error) { return inst.Ask(":NPLC?") },
//	    Set:  func(v any) error { return inst.Writef(":NPLC %v", v) },
//	})
//
// All validation and conversion rules are fixed at construction; Get and Set
// are the only mutation paths. A Set is validated before the setter runs, so
// an out-of-range value never reaches the instrument.
//
// # Value flow
//
// On Set: validate -> mapping (user value to raw token) -> SetParser -> setter.
// On Get: getter -> GetParser -> mapping (raw token to user value).
//
// # Caching
//
// Every successful Get and Set updates a cached last-known value with a
// timestamp. GetLatest serves from the cache when it is fresh enough,
// Invalidate forces the next access to hit the instrument.
//
// # Registries
//
// Each instrument owns a Registry of its parameters. Registries reject
// duplicate names and produce a Snapshot of all cached values for logging
// and persistence.
package parameter
