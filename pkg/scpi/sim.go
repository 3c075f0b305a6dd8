package scpi

import (
	"fmt"
	"sync"
)

// SimHandler produces the reply for a query command.
type SimHandler func(cmd string) (string, error)

// SimTransport is an in-memory SCPI responder for tests and simulation.
// Queries are answered by the configured handler; writes are only recorded.
type SimTransport struct {
	mu      sync.Mutex
	handler SimHandler
	history []string
	closed  bool
}

// NewSimTransport creates a simulated transport backed by a handler.
// A nil handler answers every query with an error.
func NewSimTransport(handler SimHandler) *SimTransport {
	return &SimTransport{handler: handler}
}

// Ask records the command and returns the handler's reply.
func (t *SimTransport) Ask(cmd string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return "", ErrClosed
	}
	if cmd == "" {
		return "", ErrEmptyCommand
	}

	t.history = append(t.history, cmd)
	if t.handler == nil {
		return "", fmt.Errorf("no handler for query %q", cmd)
	}
	return t.handler(cmd)
}

// Write records the command.
func (t *SimTransport) Write(cmd string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if cmd == "" {
		return ErrEmptyCommand
	}

	t.history = append(t.history, cmd)
	return nil
}

// Close marks the transport closed.
func (t *SimTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// History returns a copy of all commands seen so far, in order.
func (t *SimTransport) History() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	history := make([]string, len(t.history))
	copy(history, t.history)
	return history
}

// Reset clears the recorded command history.
func (t *SimTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = nil
}

// Compile-time interface satisfaction check.
var _ Transport = (*SimTransport)(nil)
