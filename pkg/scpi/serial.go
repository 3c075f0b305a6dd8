package scpi

import (
	"bufio"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud is the baud rate used when none is configured.
const DefaultBaud = 9600

// SerialConfig configures a SerialTransport.
type SerialConfig struct {
	// Device is the serial device path (e.g. "/dev/ttyUSB0", "COM3").
	Device string

	// Baud is the baud rate (default 9600).
	Baud int

	// ReadTimeout bounds each reply read (default 10s).
	ReadTimeout time.Duration
}

// SerialTransport is a SCPI transport over a serial line.
type SerialTransport struct {
	mu     sync.Mutex
	port   *serial.Port
	reader *bufio.Reader
	closed bool
}

// OpenSerial opens a serial SCPI link.
func OpenSerial(config SerialConfig) (*SerialTransport, error) {
	baud := config.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	readTimeout := config.ReadTimeout
	if readTimeout == 0 {
		readTimeout = DefaultIOTimeout
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        config.Device,
		Baud:        baud,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", config.Device, err)
	}

	return &SerialTransport{
		port:   port,
		reader: bufio.NewReader(port),
	}, nil
}

// Ask sends one command and reads one reply line.
func (t *SerialTransport) Ask(cmd string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writeLocked(cmd); err != nil {
		return "", err
	}
	line, err := t.reader.ReadString(Terminator)
	if err != nil {
		return "", fmt.Errorf("failed to read reply: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Write sends one command without waiting for a reply.
func (t *SerialTransport) Write(cmd string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeLocked(cmd)
}

func (t *SerialTransport) writeLocked(cmd string) error {
	if t.closed {
		return ErrClosed
	}
	if cmd == "" {
		return ErrEmptyCommand
	}
	if _, err := t.port.Write(append([]byte(cmd), Terminator)); err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}
	return nil
}

// Close closes the serial port.
// It is safe to call Close multiple times.
func (t *SerialTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.port.Close()
}

// Compile-time interface satisfaction check.
var _ Transport = (*SerialTransport)(nil)
