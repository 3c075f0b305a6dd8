package station

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
)

const simStationYAML = `
station:
  name: lab1
instruments:
  - name: smu
    kind: keithley6430
    simulation: true
  - name: rotator
    kind: cage_rotator
    simulation: true
    polling_ms: 1
  - name: flipper
    kind: filter_flipper
    simulation: true
    polling_ms: 1
  - name: tagger
    kind: timetagger
    serial: 1234567ABC
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(simStationYAML))
	require.NoError(t, err)

	assert.Equal(t, "lab1", cfg.Station.Name)
	require.Len(t, cfg.Instruments, 4)
	assert.Equal(t, KindKeithley6430, cfg.Instruments[0].Kind)
	assert.Equal(t, 1, cfg.Instruments[1].PollingMS)
	assert.True(t, cfg.Instruments[1].Simulation)
}

func TestParseConfigRejectsUnknownKind(t *testing.T) {
	_, err := ParseConfig([]byte(`
instruments:
  - name: mystery
    kind: oscilloscope
`))
	require.ErrorIs(t, err, ErrUnknownKind)
	assert.Contains(t, err.Error(), "oscilloscope")
}

func TestParseConfigRejectsDuplicateNames(t *testing.T) {
	_, err := ParseConfig([]byte(`
instruments:
  - name: smu
    kind: keithley6430
    simulation: true
  - name: smu
    kind: timetagger
`))
	require.ErrorIs(t, err, ErrDuplicateInstrument)
}

func TestParseConfigRequiresAddress(t *testing.T) {
	_, err := ParseConfig([]byte(`
instruments:
  - name: smu
    kind: keithley6430
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address is required")
}

func TestParseConfigRequiresName(t *testing.T) {
	_, err := ParseConfig([]byte(`
instruments:
  - kind: timetagger
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "station.yaml")
	require.NoError(t, os.WriteFile(path, []byte(simStationYAML), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "lab1", cfg.Station.Name)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestOpenBuildsAllInstruments(t *testing.T) {
	cfg, err := ParseConfig([]byte(simStationYAML))
	require.NoError(t, err)

	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "lab1", s.Name())
	assert.Equal(t, []string{"flipper", "rotator", "smu", "tagger"}, s.Names())

	smu, err := s.Get("smu")
	require.NoError(t, err)
	assert.Equal(t, "smu", smu.Name())

	_, err = s.Get("nope")
	require.ErrorIs(t, err, ErrInstrumentNotFound)
}

func TestOpenClosesOnPartialFailure(t *testing.T) {
	// The second instrument points a real driver at a nonexistent
	// vendor library, so construction fails after the first succeeded.
	cfg := &Config{
		Station: StationConfig{Name: "lab1"},
		Instruments: []InstrumentConfig{
			{Name: "tagger", Kind: KindTimeTagger},
			{Name: "rotator", Kind: KindCageRotator, DLLDir: "/nonexistent"},
		},
	}

	_, err := Open(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rotator")
}

func TestStationSnapshot(t *testing.T) {
	cfg, err := ParseConfig([]byte(simStationYAML))
	require.NoError(t, err)

	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	snap := s.Snapshot()
	assert.Equal(t, "lab1", snap.Station)
	assert.False(t, snap.SavedAt.IsZero())
	require.Contains(t, snap.Instruments, "smu")
	require.Contains(t, snap.Instruments, "rotator")
	assert.Contains(t, snap.Instruments["rotator"], "position")
	assert.Contains(t, snap.Instruments["smu"], "source_voltage")
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "snapshot.json")
	store := NewSnapshotStore(path)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded, "missing file is not an error")

	savedAt := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	snap := &StationSnapshot{
		SavedAt: savedAt,
		Station: "lab1",
		Instruments: map[string]parameter.Snapshot{
			"smu": {"source_voltage": {Value: 1.5, Unit: "V"}},
		},
	}
	require.NoError(t, store.Save(snap))

	loaded, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, SnapshotVersion, loaded.Version)
	assert.True(t, loaded.SavedAt.Equal(savedAt))
	assert.Equal(t, "lab1", loaded.Station)
	require.Contains(t, loaded.Instruments, "smu")
	assert.Equal(t, 1.5, loaded.Instruments["smu"]["source_voltage"].Value)

	require.NoError(t, store.Clear())
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, store.Clear(), "clearing twice is fine")
}

func TestCloseIsIdempotent(t *testing.T) {
	cfg, err := ParseConfig([]byte(simStationYAML))
	require.NoError(t, err)

	s, err := Open(cfg)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.Empty(t, s.Names())
	require.NoError(t, s.Close())
}
