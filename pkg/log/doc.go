// Package log provides structured instrument I/O logging.
//
// This package defines the Logger interface and Event types for capturing
// driver-level events: SCPI command/reply exchanges, native library calls,
// parameter changes, handle state changes, warnings, and errors. It is
// separate from operational logging (slog) - the event stream is a complete
// machine-readable trace of everything a driver did to an instrument.
//
// # Basic Usage
//
// Drivers accept a Logger; applications decide where events go:
//
//	// For development: log to console via slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// For measurement runs: write to binary file
//	logger, _ := log.NewFileLogger("run-042.ilog")
//
//	// Both: use MultiLogger
//	logger := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at two layers:
//   - Transport: raw command/reply text on the wire (ExchangeEvent)
//   - Driver: native calls, parameter accesses, state changes
//
// Warnings (e.g. reading a quantity outside the active sensing mode) and
// errors have dedicated event types.
//
// # File Format
//
// Log files use CBOR encoding with .ilog extension. The labctl CLI can
// replay and filter them.
package log
