package scpi

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// TCP transport defaults.
const (
	// DefaultTCPPort is the conventional LXI raw-socket SCPI port.
	DefaultTCPPort = 5025

	// DefaultDialTimeout bounds connection establishment.
	DefaultDialTimeout = 5 * time.Second

	// DefaultIOTimeout bounds each single write or reply read.
	DefaultIOTimeout = 10 * time.Second
)

// TCPConfig configures a TCPTransport.
type TCPConfig struct {
	// Address is the instrument address as host or host:port.
	// A missing port defaults to DefaultTCPPort.
	Address string

	// DialTimeout bounds connection establishment (default 5s).
	DialTimeout time.Duration

	// IOTimeout bounds each write and each reply read (default 10s).
	IOTimeout time.Duration
}

// TCPTransport is a SCPI transport over an LXI raw socket.
type TCPTransport struct {
	mu        sync.Mutex
	conn      net.Conn
	reader    *bufio.Reader
	ioTimeout time.Duration
	closed    bool
}

// DialTCP connects to an instrument's raw-socket SCPI port.
func DialTCP(config TCPConfig) (*TCPTransport, error) {
	addr := config.Address
	if !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, DefaultTCPPort)
	}

	dialTimeout := config.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = DefaultDialTimeout
	}
	ioTimeout := config.IOTimeout
	if ioTimeout == 0 {
		ioTimeout = DefaultIOTimeout
	}

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	return &TCPTransport{
		conn:      conn,
		reader:    bufio.NewReader(conn),
		ioTimeout: ioTimeout,
	}, nil
}

// Ask sends one command and reads one reply line.
func (t *TCPTransport) Ask(cmd string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writeLocked(cmd); err != nil {
		return "", err
	}
	return t.readLineLocked()
}

// Write sends one command without waiting for a reply.
func (t *TCPTransport) Write(cmd string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeLocked(cmd)
}

func (t *TCPTransport) writeLocked(cmd string) error {
	if t.closed {
		return ErrClosed
	}
	if cmd == "" {
		return ErrEmptyCommand
	}

	if err := t.conn.SetWriteDeadline(time.Now().Add(t.ioTimeout)); err != nil {
		return err
	}
	if _, err := t.conn.Write(append([]byte(cmd), Terminator)); err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}
	return nil
}

func (t *TCPTransport) readLineLocked() (string, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.ioTimeout)); err != nil {
		return "", err
	}
	line, err := t.reader.ReadString(Terminator)
	if err != nil {
		return "", fmt.Errorf("failed to read reply: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Close closes the underlying connection.
// It is safe to call Close multiple times.
func (t *TCPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

// Compile-time interface satisfaction check.
var _ Transport = (*TCPTransport)(nil)
