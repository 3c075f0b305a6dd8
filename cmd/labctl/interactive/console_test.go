package interactive

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qutech-lab/labdrivers-go/pkg/log"
	"github.com/qutech-lab/labdrivers-go/pkg/station"
)

func simStation(t *testing.T) *station.Station {
	t.Helper()

	cfg := &station.Config{
		Station: station.StationConfig{Name: "testlab"},
		Instruments: []station.InstrumentConfig{
			{Name: "smu", Kind: station.KindKeithley6430, Simulation: true},
			{Name: "rotator", Kind: station.KindCageRotator, Simulation: true, PollingMS: 1},
		},
	}

	st, err := station.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func run(t *testing.T, st *station.Station, cmd string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, RunCommand(st, cmd, &buf))
	return buf.String()
}

func TestListInstruments(t *testing.T) {
	st := simStation(t)

	out := run(t, st, "list")
	assert.Contains(t, out, "smu")
	assert.Contains(t, out, "rotator")
}

func TestListParameters(t *testing.T) {
	st := simStation(t)

	out := run(t, st, "list smu")
	assert.Contains(t, out, "source_voltage")
	assert.Contains(t, out, "output_enabled")

	out = run(t, st, "list rotator")
	assert.Contains(t, out, "position")
}

func TestGetSetRoundTrip(t *testing.T) {
	st := simStation(t)

	out := run(t, st, "set rotator position 90.0")
	assert.Contains(t, out, "OK")

	out = run(t, st, "get rotator position")
	assert.Contains(t, out, "90")
	assert.Contains(t, out, "°")
}

func TestSetRejectsOutOfRange(t *testing.T) {
	st := simStation(t)

	var buf bytes.Buffer
	err := RunCommand(st, "set rotator position 400.0", &buf)
	require.Error(t, err)
}

func TestReadRequiresOutput(t *testing.T) {
	st := simStation(t)

	var buf bytes.Buffer
	err := RunCommand(st, "read smu", &buf)
	require.Error(t, err, "output is off after open")

	run(t, st, "set smu output_enabled true")
	out := run(t, st, "read smu")
	assert.Contains(t, out, "0, 0, 0")
}

func TestReadOnUnsupportedInstrument(t *testing.T) {
	st := simStation(t)

	var buf bytes.Buffer
	err := RunCommand(st, "read rotator", &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot trigger measurements")
}

func TestIDN(t *testing.T) {
	st := simStation(t)

	out := run(t, st, "idn smu")
	assert.Contains(t, out, "KEITHLEY INSTRUMENTS INC.")
	assert.Contains(t, out, "6430")

	var buf bytes.Buffer
	err := RunCommand(st, "idn rotator", &buf)
	require.Error(t, err)
}

func TestSnapshotCommand(t *testing.T) {
	st := simStation(t)
	path := filepath.Join(t.TempDir(), "snap.json")

	out := run(t, st, "snapshot "+path)
	assert.Contains(t, out, path)

	loaded, err := station.NewSnapshotStore(path).Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "testlab", loaded.Station)
	assert.Contains(t, loaded.Instruments, "smu")
}

func TestLogCommand(t *testing.T) {
	st := simStation(t)
	path := filepath.Join(t.TempDir(), "events.cborlog")

	logger, err := log.NewFileLogger(path)
	require.NoError(t, err)
	logger.Log(log.Event{
		Timestamp:  time.Now(),
		Instrument: "smu",
		Direction:  log.DirectionOut,
		Layer:      log.LayerTransport,
		Category:   log.CategoryCommand,
		Exchange:   &log.ExchangeEvent{Text: ":READ?", Query: true},
	})
	require.NoError(t, logger.Close())

	out := run(t, st, "log "+path)
	assert.Contains(t, out, ":READ?")
	assert.Contains(t, out, "1 event(s)")
}

func TestUnknownCommand(t *testing.T) {
	st := simStation(t)

	var buf bytes.Buffer
	err := RunCommand(st, "teleport smu", &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestUnknownInstrument(t *testing.T) {
	st := simStation(t)

	var buf bytes.Buffer
	err := RunCommand(st, "get nope source_voltage", &buf)
	require.ErrorIs(t, err, station.ErrInstrumentNotFound)
}
