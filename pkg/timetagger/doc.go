// Package timetagger binds Swabian Instruments time tagger hardware.
//
// The vendor SDK hands out one object per measurement or virtual
// channel, created against a tagger connection. Modules here wrap
// those objects: each holds a cached SDK handle that is computed
// lazily once its prerequisite parameters are initialized, and is
// invalidated when configuration changes. Module kinds register
// themselves in a Registry so stations can enumerate what is
// available.
package timetagger
