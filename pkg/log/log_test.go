package log

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func sampleEvent() Event {
	return Event{
		Timestamp:  time.Now(),
		HandleID:   "b5c6a1c2-0000-4000-8000-000000000001",
		Instrument: "smu",
		Direction:  DirectionOut,
		Layer:      LayerTransport,
		Category:   CategoryCommand,
		Address:    "192.0.2.10:5025",
		Exchange:   &ExchangeEvent{Text: ":READ?", Query: true},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	event := sampleEvent()

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.HandleID != event.HandleID {
		t.Errorf("HandleID mismatch: %q vs %q", decoded.HandleID, event.HandleID)
	}
	if decoded.Exchange == nil || decoded.Exchange.Text != ":READ?" {
		t.Errorf("Exchange payload lost: %+v", decoded.Exchange)
	}
	if !decoded.Exchange.Query {
		t.Error("Query flag lost")
	}
}

func TestFileLoggerAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ilog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	out := sampleEvent()
	in := sampleEvent()
	in.Direction = DirectionIn
	in.Category = CategoryReply
	in.Exchange = &ExchangeEvent{Text: "1.23,4.56,7.89"}

	logger.Log(out)
	logger.Log(in)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Log after close must be a no-op, not a panic.
	logger.Log(out)

	dir := DirectionIn
	reader, err := NewFilteredReader(path, Filter{Direction: &dir})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	event, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if event.Category != CategoryReply {
		t.Errorf("expected reply event, got %v", event.Category)
	}

	if _, err = reader.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestMultiLogger(t *testing.T) {
	var a, b capturingLogger
	multi := NewMultiLogger(&a, &b)
	multi.Log(sampleEvent())

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both loggers to receive the event: %d, %d",
			len(a.events), len(b.events))
	}
}

func TestSlogAdapterLevels(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	// Debug-level exchange is filtered out at warn level.
	adapter.Log(sampleEvent())
	if buf.Len() != 0 {
		t.Fatalf("exchange event should be below warn level: %s", buf.String())
	}

	warning := Event{
		Timestamp: time.Now(),
		HandleID:  "h",
		Direction: DirectionNone,
		Layer:     LayerDriver,
		Category:  CategoryWarning,
		Warning: &WarningEvent{
			Message: "tried reading CURR:DC, but mode is set to VOLT:DC",
		},
	}
	adapter.Log(warning)
	if !bytes.Contains(buf.Bytes(), []byte("CURR:DC")) {
		t.Fatalf("warning not logged: %s", buf.String())
	}
}

// capturingLogger records events for assertions.
type capturingLogger struct {
	events []Event
}

func (c *capturingLogger) Log(event Event) {
	c.events = append(c.events, event)
}
