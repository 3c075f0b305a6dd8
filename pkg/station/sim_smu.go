package station

import (
	"strings"
	"sync"

	"github.com/qutech-lab/labdrivers-go/pkg/scpi"
)

// simSMUTransport answers like a source-measure unit with its output
// relay tracked, so a simulated station behaves plausibly without
// hardware. Anything it does not model reads back as "0".
type simSMUTransport struct {
	mu     sync.Mutex
	output bool
	sense  string
	closed bool
}

func newSimSMUTransport() *simSMUTransport {
	return &simSMUTransport{sense: `"CURR:DC"`}
}

func (t *simSMUTransport) Ask(cmd string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return "", scpi.ErrClosed
	}
	if cmd == "" {
		return "", scpi.ErrEmptyCommand
	}

	switch cmd {
	case "*IDN?":
		return "KEITHLEY INSTRUMENTS INC.,MODEL 6430,0,SIM", nil
	case "OUTP?":
		if t.output {
			return "1", nil
		}
		return "0", nil
	case "SENS:FUNC?":
		return t.sense, nil
	case ":READ?":
		return "0.0,0.0,0.0", nil
	}
	return "0", nil
}

func (t *simSMUTransport) Write(cmd string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return scpi.ErrClosed
	}
	if cmd == "" {
		return scpi.ErrEmptyCommand
	}

	switch {
	case cmd == "OUTP 1":
		t.output = true
	case cmd == "OUTP 0":
		t.output = false
	case strings.HasPrefix(cmd, ":SENS:FUNC \""):
		t.sense = strings.TrimPrefix(cmd, ":SENS:FUNC ")
	}
	return nil
}

func (t *simSMUTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

var _ scpi.Transport = (*simSMUTransport)(nil)
