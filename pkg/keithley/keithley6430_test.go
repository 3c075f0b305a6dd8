package keithley

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qutech-lab/labdrivers-go/pkg/log"
	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
	"github.com/qutech-lab/labdrivers-go/pkg/scpi"
)

// sim6430 answers queries like a 6430 with a settable state.
type sim6430 struct {
	mu        sync.Mutex
	output    string // "0" or "1"
	senseMode string // quoted, comma separated
	reading   string
}

func newSim6430() *sim6430 {
	return &sim6430{
		output:    "0",
		senseMode: `"VOLT:DC","CURR:DC"`,
		reading:   "+0.000000E+00,+0.000000E+00,+0.000000E+00",
	}
}

func (s *sim6430) handle(cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd {
	case "OUTP?":
		return s.output, nil
	case "SENS:FUNC?":
		return s.senseMode, nil
	case ":READ?":
		return s.reading, nil
	case "SENS:CURR:RANG:AUTO?", "SENS:VOLT:RANG:AUTO?", "SENS:RES:RANG:AUTO?":
		return "1", nil
	}
	return "", fmt.Errorf("unknown query %q", cmd)
}

func newTestDriver(t *testing.T, logger log.Logger) (*Keithley6430, *sim6430, *scpi.SimTransport) {
	t.Helper()

	sim := newSim6430()
	tr := scpi.NewSimTransport(sim.handle)

	var opts []scpi.Option
	if logger != nil {
		opts = append(opts, scpi.WithLogger(logger))
	}
	k, err := New("smu", tr, opts...)
	require.NoError(t, err)
	return k, sim, tr
}

func TestSetRejectsOutOfRangeBeforeTransport(t *testing.T) {
	k, _, tr := newTestDriver(t, nil)

	err := k.SourceCurrent.Set(1.0) // far above 105 mA
	require.ErrorIs(t, err, parameter.ErrOutOfRange)
	assert.Empty(t, tr.History(), "rejected set must not reach the instrument")

	require.NoError(t, k.SourceCurrent.Set(50e-3))
	assert.Contains(t, tr.History(), "SOUR:CURR:LEV 0.05")
}

func TestReadRequiresOutputOrAutoOff(t *testing.T) {
	k, sim, _ := newTestDriver(t, nil)

	_, err := k.Read()
	require.ErrorIs(t, err, ErrOutputDisabled)

	sim.output = "1"
	_, err = k.Read()
	require.NoError(t, err)
}

func TestReadParsesPositionalReply(t *testing.T) {
	k, sim, _ := newTestDriver(t, nil)
	sim.output = "1"
	sim.reading = "1.23,4.56,7.89"

	values, err := k.Read()
	require.NoError(t, err)
	assert.Equal(t, []float64{1.23, 4.56, 7.89}, values)
}

func TestReadTruncatesExtraFields(t *testing.T) {
	k, sim, _ := newTestDriver(t, nil)
	sim.output = "1"
	// The 6430 appends time and status; only the first three matter.
	sim.reading = "+1.000000E+00,+2.000000E+00,+3.000000E+00,+4.213000E+03,+2.150000E+04"

	values, err := k.Read()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, values)
}

func TestReadValueSelectsByQuantity(t *testing.T) {
	k, sim, _ := newTestDriver(t, nil)
	sim.output = "1"
	sim.reading = "1.5,2.5,3.5"

	v, err := k.ReadValue(SenseVoltage)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	v, err = k.ReadValue(SenseCurrent)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	v, err = k.ReadValue(SenseResistance)
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)

	_, err = k.ReadValue("TEMP")
	require.ErrorIs(t, err, ErrInvalidSenseMode)
}

func TestReadValueOutsideModeWarns(t *testing.T) {
	var captured capturingLogger
	k, sim, _ := newTestDriver(t, &captured)
	sim.output = "1"
	sim.senseMode = `"VOLT:DC"`
	sim.reading = "1.0,2.0,3.0"

	_, err := k.ReadValue(SenseCurrent)
	require.NoError(t, err)

	var warnings []log.Event
	for _, event := range captured.events {
		if event.Category == log.CategoryWarning {
			warnings = append(warnings, event)
		}
	}
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Warning.Message, "CURR:DC")
	assert.Contains(t, warnings[0].Warning.Message, "might be old")
}

func TestSenseModeRoundTrip(t *testing.T) {
	k, sim, tr := newTestDriver(t, nil)

	mode, err := k.SenseMode.Get()
	require.NoError(t, err)
	assert.Equal(t, "VOLT:DC,CURR:DC", mode, "quotes must be stripped")

	require.NoError(t, k.SenseMode.Set("RES"))
	history := tr.History()
	assert.Contains(t, history, ":SENS:FUNC:OFF:ALL")
	assert.Contains(t, history, `:SENS:FUNC "RES"`)

	sim.senseMode = `"RES"`
	mode, err = k.SenseMode.Get()
	require.NoError(t, err)
	assert.Equal(t, "RES", mode)
}

func TestSenseModeRejectsUnknownFunction(t *testing.T) {
	k, _, tr := newTestDriver(t, nil)

	err := k.SenseMode.Set("VOLT:DC,TEMP")
	require.ErrorIs(t, err, ErrInvalidSenseMode)
	assert.Empty(t, tr.History())
}

func TestSenseAutorangeFansOut(t *testing.T) {
	k, _, tr := newTestDriver(t, nil)

	require.NoError(t, k.SenseAutorange.Set(true))
	history := tr.History()
	assert.Contains(t, history, "SENS:CURR:RANG:AUTO 1")
	assert.Contains(t, history, "SENS:VOLT:RANG:AUTO 1")
	assert.Contains(t, history, "SENS:RES:RANG:AUTO 1")

	on, err := k.SenseAutorange.Get()
	require.NoError(t, err)
	assert.Equal(t, true, on)
}

func TestSourceModeStripsQuotes(t *testing.T) {
	sim := scpi.NewSimTransport(func(cmd string) (string, error) {
		if cmd == "SOUR:FUNC?" {
			return `"CURR"`, nil
		}
		return "", fmt.Errorf("unknown query %q", cmd)
	})
	k, err := New("smu", sim)
	require.NoError(t, err)

	mode, err := k.SourceMode.Get()
	require.NoError(t, err)
	assert.Equal(t, "CURR", mode)

	err = k.SourceMode.Set("RES")
	require.ErrorIs(t, err, parameter.ErrNotInEnum)
}

func TestOutputAutoOffSetsClearAuto(t *testing.T) {
	k, _, tr := newTestDriver(t, nil)

	require.NoError(t, k.OutputAutoOff.Set(true))
	assert.Contains(t, tr.History(), ":SOUR:CLE:AUTO 1")
}

func TestSetDefaultsConfiguresSourceAndSense(t *testing.T) {
	k, _, tr := newTestDriver(t, nil)

	require.NoError(t, k.SetDefaults())

	history := tr.History()
	assert.Contains(t, history, "SYST:PRES")
	assert.Contains(t, history, "SOUR:FUNC CURR")
	assert.Contains(t, history, `:SENS:FUNC "VOLT:DC","CURR:DC"`)
	assert.Contains(t, history, "SOUR:CURR:LEV 0")
	assert.Contains(t, history, "DISP:DIG 7")
	assert.Contains(t, history, ":NPLC 10")
}

func TestSetTriggerContinuous(t *testing.T) {
	k, _, tr := newTestDriver(t, nil)

	require.NoError(t, k.SetTriggerContinuous())
	history := tr.History()
	assert.Contains(t, history, ":TRIG:SOUR IMM")
	assert.Contains(t, history, ":ARM:SOUR IMM")
}

type capturingLogger struct {
	events []log.Event
}

func (c *capturingLogger) Log(event log.Event) {
	c.events = append(c.events, event)
}
