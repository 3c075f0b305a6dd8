package keithley

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
	"github.com/qutech-lab/labdrivers-go/pkg/scpi"
)

// Driver errors.
var (
	// ErrOutputDisabled indicates Read was called with the source off and
	// auto-off disabled. This is a caller mistake, never retried.
	ErrOutputDisabled = errors.New(
		"either source must be turned on or auto-off enabled before calling Read")

	// ErrInvalidSenseMode indicates a sensing mode outside the supported set.
	ErrInvalidSenseMode = errors.New("invalid sense mode")
)

// Sensing quantities as the instrument names them.
const (
	SenseVoltage    = "VOLT:DC"
	SenseCurrent    = "CURR:DC"
	SenseResistance = "RES"
)

// senseIndex gives the position of each quantity in a :READ? reply.
var senseIndex = map[string]int{
	SenseVoltage:    0,
	SenseCurrent:    1,
	SenseResistance: 2,
}

// Keithley6430 drives a Keithley 6430 source-measure unit over SCPI.
//
// All parameters are also reachable through the embedded instrument's
// registry; the struct fields are for direct driver use.
type Keithley6430 struct {
	*scpi.Instrument

	SourceCurrentCompliance        *parameter.Parameter
	SourceVoltageCompliance        *parameter.Parameter
	SourceCurrentComplianceTripped *parameter.Parameter
	SourceVoltageComplianceTripped *parameter.Parameter
	SourceCurrent                  *parameter.Parameter
	SourceCurrentRange             *parameter.Parameter
	SourceVoltage                  *parameter.Parameter
	SourceVoltageRange             *parameter.Parameter
	SourceDelayAuto                *parameter.Parameter
	SourceDelay                    *parameter.Parameter
	SourceMode                     *parameter.Parameter
	OutputEnabled                  *parameter.Parameter
	OutputAutoOff                  *parameter.Parameter

	SenseCurrentParam    *parameter.Parameter
	SenseVoltageParam    *parameter.Parameter
	SenseResistanceParam *parameter.Parameter
	SenseMode            *parameter.Parameter
	SenseAutorange       *parameter.Parameter
	SenseCurrentRange    *parameter.Parameter
	SenseVoltageRange    *parameter.Parameter
	SenseResistanceRange *parameter.Parameter
	SenseResistanceOComp *parameter.Parameter

	TriggerSource *parameter.Parameter
	ArmSource     *parameter.Parameter
	TriggerCount  *parameter.Parameter
	ArmCount      *parameter.Parameter

	NPLC     *parameter.Parameter
	Digits   *parameter.Parameter
	Autozero *parameter.Parameter

	FilterAuto          *parameter.Parameter
	FilterRepeatEnabled *parameter.Parameter
	FilterMedianEnabled *parameter.Parameter
	FilterMovingEnabled *parameter.Parameter
	FilterRepeat        *parameter.Parameter
	FilterMedian        *parameter.Parameter
	FilterMoving        *parameter.Parameter
}

// New creates a Keithley 6430 driver on the given transport.
func New(name string, transport scpi.Transport, opts ...scpi.Option) (*Keithley6430, error) {
	k := &Keithley6430{
		Instrument: scpi.NewInstrument(name, transport, opts...),
	}

	onOff := parameter.OnOffMapping("1", "0")

	k.SourceCurrentCompliance = k.MustAddCommand(scpi.Command{
		Name:   "source_current_compliance",
		Unit:   "A",
		GetCmd: "SENS:CURR:PROT?",
		SetCmd: "SENS:CURR:PROT %v",
		Parser: scpi.ParseFloat,
		Vals:   parameter.Numbers(1e-9, 105e-3),
	})
	k.SourceVoltageCompliance = k.MustAddCommand(scpi.Command{
		Name:   "source_voltage_compliance",
		Unit:   "V",
		GetCmd: "SENS:VOLT:PROT?",
		SetCmd: "SENS:VOLT:PROT %v",
		Parser: scpi.ParseFloat,
		Vals:   parameter.Numbers(1e-12, 210),
	})
	k.SourceCurrentComplianceTripped = k.MustAddCommand(scpi.Command{
		Name:    "source_current_compliance_tripped",
		Label:   "Current compliance reached",
		GetCmd:  "SENS:CURR:PROT:TRIP?",
		Mapping: onOff,
	})
	k.SourceVoltageComplianceTripped = k.MustAddCommand(scpi.Command{
		Name:    "source_voltage_compliance_tripped",
		Label:   "Voltage compliance reached",
		GetCmd:  "SENS:VOLT:PROT:TRIP?",
		Mapping: onOff,
	})
	k.SourceCurrent = k.MustAddCommand(scpi.Command{
		Name:   "source_current",
		Label:  "Source current",
		Unit:   "A",
		GetCmd: "SOUR:CURR:LEV?",
		SetCmd: "SOUR:CURR:LEV %v",
		Parser: scpi.ParseFloat,
		Vals:   parameter.Numbers(-105e-3, 105e-3),
	})
	k.SourceCurrentRange = k.MustAddCommand(scpi.Command{
		Name:   "source_current_range",
		Unit:   "A",
		GetCmd: "SOUR:CURR:RANG?",
		SetCmd: "SOUR:CURR:RANG %v",
		Parser: scpi.ParseFloat,
		Vals:   parameter.Numbers(1e-12, 105e-3),
	})
	k.SourceVoltage = k.MustAddCommand(scpi.Command{
		Name:   "source_voltage",
		Label:  "Source voltage",
		Unit:   "V",
		GetCmd: "SOUR:VOLT:LEV?",
		SetCmd: "SOUR:VOLT:LEV %v",
		Parser: scpi.ParseFloat,
		Vals:   parameter.Numbers(-210, 210),
	})
	k.SourceVoltageRange = k.MustAddCommand(scpi.Command{
		Name:   "source_voltage_range",
		Unit:   "V",
		GetCmd: "SOUR:VOLT:RANG?",
		SetCmd: "SOUR:VOLT:RANG %v",
		Parser: scpi.ParseFloat,
		Vals:   parameter.Numbers(200e-3, 200),
	})
	k.SourceDelayAuto = k.MustAddCommand(scpi.Command{
		Name:    "source_delay_auto",
		GetCmd:  ":SOUR:DEL:AUTO?",
		SetCmd:  ":SOUR:DEL:AUTO %v",
		Mapping: onOff,
		Vals:    parameter.Bool(),
	})
	k.SourceDelay = k.MustAddCommand(scpi.Command{
		Name:   "source_delay",
		Unit:   "s",
		GetCmd: ":SOUR:DEL?",
		SetCmd: ":SOUR:DEL %v",
		Parser: scpi.ParseFloat,
		Vals:   parameter.Numbers(0, 9999.998),
	})
	k.OutputEnabled = k.MustAddCommand(scpi.Command{
		Name:    "output_enabled",
		Label:   "Output on",
		GetCmd:  "OUTP?",
		SetCmd:  "OUTP %v",
		Mapping: onOff,
		Vals:    parameter.Bool(),
	})
	// The instrument reports output state for both; only set differs.
	k.OutputAutoOff = k.MustAddCommand(scpi.Command{
		Name:    "output_auto_off",
		GetCmd:  "OUTP?",
		SetCmd:  ":SOUR:CLE:AUTO %v",
		Mapping: onOff,
		Vals:    parameter.Bool(),
	})
	k.SourceMode = k.MustAddCommand(scpi.Command{
		Name:   "source_mode",
		Label:  "Source function",
		GetCmd: "SOUR:FUNC?",
		SetCmd: "SOUR:FUNC %v",
		Parser: scpi.ParseQuotedString,
		Vals:   parameter.Enum("VOLT", "CURR"),
	})

	k.SenseCurrentParam = k.MustAddParameter(parameter.Spec{
		Name:            "sense_current",
		Label:           "Measured current",
		Unit:            "A",
		SnapshotExclude: true,
		Get:             func() (any, error) { return k.ReadValue(SenseCurrent) },
	})
	k.SenseVoltageParam = k.MustAddParameter(parameter.Spec{
		Name:            "sense_voltage",
		Label:           "Measured voltage",
		Unit:            "V",
		SnapshotExclude: true,
		Get:             func() (any, error) { return k.ReadValue(SenseVoltage) },
	})
	k.SenseResistanceParam = k.MustAddParameter(parameter.Spec{
		Name:            "sense_resistance",
		Label:           "Measured resistance",
		Unit:            "Ohm",
		SnapshotExclude: true,
		Get:             func() (any, error) { return k.ReadValue(SenseResistance) },
	})

	k.SenseMode = k.MustAddParameter(parameter.Spec{
		Name:  "sense_mode",
		Label: "Sense function(s)",
		Vals:  parameter.Strings(),
		Get:   func() (any, error) { return k.getSenseMode() },
		Set:   func(v any) error { return k.setSenseMode(v.(string)) },
	})
	k.SenseAutorange = k.MustAddParameter(parameter.Spec{
		Name: "sense_autorange",
		Vals: parameter.Bool(),
		Get:  func() (any, error) { return k.getSenseAutorange() },
		Set:  func(v any) error { return k.setSenseAutorange(v.(bool)) },
	})
	k.SenseCurrentRange = k.MustAddCommand(scpi.Command{
		Name:   "sense_current_range",
		Unit:   "A",
		GetCmd: ":SENS:CURR:RANG?",
		SetCmd: ":SENS:CURR:RANG %v",
		Parser: scpi.ParseFloat,
		Vals:   parameter.Numbers(1e-12, 1e-1),
	})
	k.SenseVoltageRange = k.MustAddCommand(scpi.Command{
		Name:   "sense_voltage_range",
		Unit:   "V",
		GetCmd: ":SENS:VOLT:RANG?",
		SetCmd: ":SENS:VOLT:RANG %v",
		Parser: scpi.ParseFloat,
		Vals:   parameter.Enum(200, 20, 2, 0.2),
	})
	k.SenseResistanceRange = k.MustAddCommand(scpi.Command{
		Name:   "sense_resistance_range",
		Unit:   "Ohm",
		GetCmd: ":SENS:RES:RANG?",
		SetCmd: ":SENS:RES:RANG %v",
		Parser: scpi.ParseFloat,
		Vals:   parameter.Numbers(2, 2e13),
	})
	k.SenseResistanceOComp = k.MustAddCommand(scpi.Command{
		Name:    "sense_resistance_ocomp",
		Label:   "Resistance offset compensation",
		GetCmd:  ":SENS:RES:OCOM?",
		SetCmd:  ":SENS:RES:OCOM %v",
		Mapping: onOff,
		Vals:    parameter.Bool(),
	})

	k.TriggerSource = k.MustAddCommand(scpi.Command{
		Name:   "trigger_source",
		GetCmd: ":TRIG:SOUR?",
		SetCmd: ":TRIG:SOUR %v",
		Parser: scpi.ParseString,
		Vals:   parameter.Enum("IMM", "TLIN"),
	})
	k.ArmSource = k.MustAddCommand(scpi.Command{
		Name:   "arm_source",
		GetCmd: ":ARM:SOUR?",
		SetCmd: ":ARM:SOUR %v",
		Parser: scpi.ParseString,
		Vals:   parameter.Enum("IMM", "TLIN"),
	})
	k.TriggerCount = k.MustAddCommand(scpi.Command{
		Name:   "trigger_count",
		GetCmd: ":TRIG:COUN?",
		SetCmd: ":TRIG:COUN %v",
		Parser: scpi.ParseInt,
		Vals:   parameter.AnyInt(),
	})
	k.ArmCount = k.MustAddCommand(scpi.Command{
		Name:   "arm_count",
		GetCmd: ":ARM:COUN?",
		SetCmd: ":ARM:COUN %v",
		Parser: scpi.ParseInt,
		Vals:   parameter.AnyInt(),
	})

	k.NPLC = k.MustAddCommand(scpi.Command{
		Name:   "nplc",
		Label:  "Integration time",
		Unit:   "NPLC",
		GetCmd: ":NPLC?",
		SetCmd: ":NPLC %v",
		Parser: scpi.ParseFloat,
		Vals:   parameter.Numbers(0.01, 10),
	})
	k.Digits = k.MustAddCommand(scpi.Command{
		Name:   "digits",
		GetCmd: "DISP:DIG?",
		SetCmd: "DISP:DIG %v",
		Parser: scpi.ParseInt,
		Vals:   parameter.Ints(4, 7),
	})
	k.Autozero = k.MustAddCommand(scpi.Command{
		Name:    "autozero",
		GetCmd:  "SYST:AZER:STAT?",
		SetCmd:  "SYST:AZER:STAT %v",
		Mapping: onOff,
		Vals:    parameter.Bool(),
	})

	k.FilterAuto = k.MustAddCommand(scpi.Command{
		Name:    "filter_auto",
		GetCmd:  "AVER:AUTO?",
		SetCmd:  "AVER:AUTO %v",
		Mapping: onOff,
		Vals:    parameter.Bool(),
	})
	k.FilterRepeatEnabled = k.MustAddCommand(scpi.Command{
		Name:    "filter_repeat_enabled",
		GetCmd:  "AVER:AUTO?",
		SetCmd:  ":AVER:REP:STAT %v",
		Mapping: onOff,
		Vals:    parameter.Bool(),
	})
	k.FilterMedianEnabled = k.MustAddCommand(scpi.Command{
		Name:    "filter_median_enabled",
		GetCmd:  ":MED:STAT?",
		SetCmd:  ":MED:STAT %v",
		Mapping: onOff,
		Vals:    parameter.Bool(),
	})
	k.FilterMovingEnabled = k.MustAddCommand(scpi.Command{
		Name:    "filter_moving_enabled",
		GetCmd:  ":AVER:STAT?",
		SetCmd:  ":AVER:STAT %v",
		Mapping: onOff,
		Vals:    parameter.Bool(),
	})
	k.FilterRepeat = k.MustAddCommand(scpi.Command{
		Name:   "filter_repeat",
		GetCmd: ":AVER:REP:COUN?",
		SetCmd: ":AVER:REP:COUN %v",
		Parser: scpi.ParseInt,
		Vals:   parameter.AnyInt(),
	})
	k.FilterMedian = k.MustAddCommand(scpi.Command{
		Name:   "filter_median",
		GetCmd: ":MED:RANK?",
		SetCmd: ":MED:RANK %v",
		Parser: scpi.ParseInt,
		Vals:   parameter.AnyInt(),
	})
	k.FilterMoving = k.MustAddCommand(scpi.Command{
		Name:   "filter_moving",
		GetCmd: ":AVER:COUN?",
		SetCmd: ":AVER:COUN %v",
		Parser: scpi.ParseInt,
		Vals:   parameter.AnyInt(),
	})

	return k, nil
}

// Connect queries the identification string and records the connect
// message in the event log.
func (k *Keithley6430) Connect() (scpi.IDN, error) {
	idn, err := k.GetIDN()
	if err != nil {
		return scpi.IDN{}, err
	}
	k.LogConnectMessage(idn)
	return idn, nil
}

// Reset resets the instrument to default values.
func (k *Keithley6430) Reset() error {
	return k.Write("*RST")
}

// Init leaves idle mode for the arm/trigger layers.
func (k *Keithley6430) Init() error {
	return k.Write(":INIT")
}

// SetTriggerContinuous sets trigger and arm sources to immediate.
func (k *Keithley6430) SetTriggerContinuous() error {
	if err := k.TriggerSource.Set("IMM"); err != nil {
		return err
	}
	return k.ArmSource.Set("IMM")
}

// SetDefaults configures the driver defaults: source current, sense
// voltage and current, 7 digits, 10 NPLC, 1 uA / 1 mV compliance.
func (k *Keithley6430) SetDefaults() error {
	if err := k.Write("SYST:PRES"); err != nil {
		return err
	}

	steps := []struct {
		p     *parameter.Parameter
		value any
	}{
		{k.SourceMode, "CURR"},
		{k.SenseMode, "VOLT:DC,CURR:DC"},
		{k.SourceCurrentRange, 1e-6},
		{k.SourceCurrent, 0.0},
		{k.SourceCurrentCompliance, 1e-6},
		{k.SourceVoltageRange, 200e-3},
		{k.SourceVoltageCompliance, 1e-3},
		{k.Digits, 7},
		{k.NPLC, 10.0},
	}
	for _, step := range steps {
		if err := step.p.Set(step.value); err != nil {
			return err
		}
	}
	return nil
}

// Read arms, triggers, and reads out the instrument.
//
// The result holds voltage, current, and resistance positionally. A value
// is only meaningful if the corresponding quantity is part of the active
// sensing mode; other positions carry stale instrument data.
func (k *Keithley6430) Read() ([]float64, error) {
	enabled, err := k.OutputEnabled.Get()
	if err != nil {
		return nil, err
	}
	autoOff := false
	if enabled != true {
		v, err := k.OutputAutoOff.Get()
		if err != nil {
			return nil, err
		}
		autoOff = v == true
	}
	if enabled != true && !autoOff {
		return nil, ErrOutputDisabled
	}

	reply, err := k.Ask(":READ?")
	if err != nil {
		return nil, err
	}

	fields := strings.Split(reply, ",")
	if len(fields) > 3 {
		fields = fields[:3]
	}
	values := make([]float64, 0, len(fields))
	for _, field := range fields {
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, err
		}
		values = append(values, f)
	}
	return values, nil
}

// ReadValue reads one quantity (SenseVoltage, SenseCurrent, or
// SenseResistance) through the sensing module.
//
// Reading a quantity outside the active sensing mode emits a stale-read
// warning; the returned number is then the instrument's last value for
// that position and may be old.
func (k *Keithley6430) ReadValue(quantity string) (float64, error) {
	idx, ok := senseIndex[quantity]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSenseMode, quantity)
	}

	mode, err := k.SenseMode.Get()
	if err != nil {
		return 0, err
	}
	if !strings.Contains(mode.(string), quantity) {
		k.LogWarning(
			fmt.Sprintf("%s tried reading %s, but mode is set to %s. Value might be old.",
				k.Name(), quantity, mode),
			"ReadValue")
	}

	values, err := k.Read()
	if err != nil {
		return 0, err
	}
	if idx >= len(values) {
		return 0, fmt.Errorf("reply carried %d values, need index %d for %s",
			len(values), idx, quantity)
	}
	return values[idx], nil
}

// getSenseMode reads the active sensing mode(s), quotes stripped.
func (k *Keithley6430) getSenseMode() (string, error) {
	reply, err := k.Ask("SENS:FUNC?")
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(reply, `"`, ""), nil
}

// setSenseMode activates the given mode(s). Multiple modes are separated
// by commas, e.g. "VOLT:DC,CURR:DC".
func (k *Keithley6430) setSenseMode(mode string) error {
	parts := strings.Split(mode, ",")
	quoted := make([]string, 0, len(parts))
	for _, part := range parts {
		m := strings.TrimSpace(part)
		if m != SenseVoltage && m != SenseCurrent && m != SenseResistance {
			return fmt.Errorf("%w: %q", ErrInvalidSenseMode, m)
		}
		quoted = append(quoted, `"`+m+`"`)
	}

	if err := k.Write(":SENS:FUNC:OFF:ALL"); err != nil {
		return err
	}
	return k.Writef(":SENS:FUNC %s", strings.Join(quoted, ","))
}

// setSenseAutorange switches autorange for all three sensing subsystems.
func (k *Keithley6430) setSenseAutorange(on bool) error {
	v := 0
	if on {
		v = 1
	}
	for _, subsystem := range []string{"CURR", "VOLT", "RES"} {
		if err := k.Writef("SENS:%s:RANG:AUTO %d", subsystem, v); err != nil {
			return err
		}
	}
	return nil
}

// getSenseAutorange reports true iff autorange is on for all three
// sensing subsystems.
func (k *Keithley6430) getSenseAutorange() (bool, error) {
	all := true
	for _, subsystem := range []string{"CURR", "VOLT", "RES"} {
		reply, err := k.Ask(fmt.Sprintf("SENS:%s:RANG:AUTO?", subsystem))
		if err != nil {
			return false, err
		}
		on, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
		if err != nil {
			return false, err
		}
		all = all && on != 0
	}
	return all, nil
}
