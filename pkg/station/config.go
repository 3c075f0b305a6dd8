package station

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Instrument kinds accepted in station configuration.
const (
	KindKeithley6430  = "keithley6430"
	KindCageRotator   = "cage_rotator"
	KindKCubeDCServo  = "kcube_dcservo"
	KindFilterFlipper = "filter_flipper"
	KindTimeTagger    = "timetagger"
)

var knownKinds = map[string]bool{
	KindKeithley6430:  true,
	KindCageRotator:   true,
	KindKCubeDCServo:  true,
	KindFilterFlipper: true,
	KindTimeTagger:    true,
}

var (
	// ErrUnknownKind indicates an instrument kind outside the known set.
	ErrUnknownKind = errors.New("unknown instrument kind")

	// ErrDuplicateInstrument indicates two instruments share a name.
	ErrDuplicateInstrument = errors.New("duplicate instrument name")
)

// Config is the station configuration file.
type Config struct {
	Station     StationConfig      `yaml:"station"`
	Instruments []InstrumentConfig `yaml:"instruments"`
}

// StationConfig holds station-wide settings.
type StationConfig struct {
	// Name identifies the station in snapshots and logs.
	Name string `yaml:"name"`

	// LogFile is the instrument event log path. Empty disables logging.
	LogFile string `yaml:"log_file,omitempty"`
}

// InstrumentConfig declares one instrument.
type InstrumentConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Address is the SCPI endpoint, host[:port] or a serial device path.
	Address string `yaml:"address,omitempty"`

	// Serial selects a motion controller or tagger by serial number.
	// Empty connects to the first device found.
	Serial string `yaml:"serial,omitempty"`

	// PollingMS is the motion controller status polling interval.
	PollingMS int `yaml:"polling_ms,omitempty"`

	// Simulation backs the instrument with an in-memory simulator.
	Simulation bool `yaml:"simulation,omitempty"`

	// DLLDir overrides the vendor library directory.
	DLLDir string `yaml:"dll_dir,omitempty"`

	// Home homes a motion controller after connecting.
	Home bool `yaml:"home,omitempty"`
}

// ParseConfig parses and validates a station configuration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("station config parse error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads and parses a station configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// Validate checks instrument kinds and required fields.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i, inst := range c.Instruments {
		if inst.Name == "" {
			return fmt.Errorf("instrument %d: name is required", i)
		}
		if seen[inst.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateInstrument, inst.Name)
		}
		seen[inst.Name] = true

		if !knownKinds[inst.Kind] {
			return fmt.Errorf("%w: %q (instrument %s)", ErrUnknownKind, inst.Kind, inst.Name)
		}
		if inst.Kind == KindKeithley6430 && inst.Address == "" && !inst.Simulation {
			return fmt.Errorf("instrument %s: address is required", inst.Name)
		}
	}
	return nil
}
