package scpi

import (
	"errors"
)

// Terminator is the fixed line terminator for all SCPI traffic.
const Terminator = '\n'

// Transport errors.
var (
	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("transport is closed")

	// ErrEmptyCommand indicates an empty command string.
	ErrEmptyCommand = errors.New("empty command")
)

// Transport is a point-to-point, line-oriented instrument link.
//
// Implementations must serialize concurrent calls: within one transport all
// operations happen strictly in call order. Across two transports there is
// no ordering guarantee and no shared state.
type Transport interface {
	// Ask sends one command and returns the reply line, terminator
	// stripped. Exactly one synchronous request/response round trip.
	Ask(cmd string) (string, error)

	// Write sends one command without waiting for a reply.
	Write(cmd string) error

	// Close releases the underlying link.
	Close() error
}
