package station

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/qutech-lab/labdrivers-go/pkg/keithley"
	"github.com/qutech-lab/labdrivers-go/pkg/kinesis"
	"github.com/qutech-lab/labdrivers-go/pkg/log"
	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
	"github.com/qutech-lab/labdrivers-go/pkg/scpi"
	"github.com/qutech-lab/labdrivers-go/pkg/timetagger"
)

// ErrInstrumentNotFound indicates a lookup of an unknown instrument.
var ErrInstrumentNotFound = errors.New("instrument not found")

// Instrument is what the station requires of its members.
type Instrument interface {
	Name() string
	Parameters() *parameter.Registry
	Close() error
}

// Station is a named collection of instruments.
type Station struct {
	name   string
	logger log.Logger

	mu          sync.Mutex
	instruments map[string]Instrument
	order       []string
}

// Option configures a Station.
type Option func(*Station)

// WithLogger attaches an instrument event logger used for instruments
// the station constructs itself.
func WithLogger(logger log.Logger) Option {
	return func(s *Station) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty station.
func New(name string, opts ...Option) *Station {
	s := &Station{
		name:        name,
		logger:      log.NoopLogger{},
		instruments: make(map[string]Instrument),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open builds a station from configuration, constructing every
// declared instrument. On any failure the instruments opened so far
// are closed again.
func Open(cfg *Config, opts ...Option) (*Station, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := New(cfg.Station.Name, opts...)
	for _, ic := range cfg.Instruments {
		inst, err := s.build(ic)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("instrument %s: %w", ic.Name, err)
		}
		if err := s.Add(inst); err != nil {
			inst.Close()
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Name returns the station name.
func (s *Station) Name() string { return s.name }

// Add registers an instrument. Name collisions are an error.
func (s *Station) Add(inst Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instruments[inst.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateInstrument, inst.Name())
	}
	s.instruments[inst.Name()] = inst
	s.order = append(s.order, inst.Name())
	return nil
}

// Get returns an instrument by name.
func (s *Station) Get(name string) (Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instruments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInstrumentNotFound, name)
	}
	return inst, nil
}

// Names returns the instrument names, sorted.
func (s *Station) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	sort.Strings(names)
	return names
}

// Snapshot collects the parameter snapshots of every instrument.
func (s *Station) Snapshot() *StationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &StationSnapshot{
		Station:     s.name,
		SavedAt:     time.Now(),
		Instruments: make(map[string]parameter.Snapshot, len(s.instruments)),
	}
	for name, inst := range s.instruments {
		snap.Instruments[name] = inst.Parameters().Snapshot()
	}
	return snap
}

// Close closes every instrument, in reverse construction order.
func (s *Station) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for i := len(s.order) - 1; i >= 0; i-- {
		name := s.order[i]
		if inst, ok := s.instruments[name]; ok {
			if err := inst.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
			delete(s.instruments, name)
		}
	}
	s.order = nil
	return errors.Join(errs...)
}

// build constructs one instrument from its configuration entry.
func (s *Station) build(ic InstrumentConfig) (Instrument, error) {
	switch ic.Kind {
	case KindKeithley6430:
		return s.buildKeithley(ic)
	case KindCageRotator, KindKCubeDCServo, KindFilterFlipper:
		return s.buildKinesis(ic)
	case KindTimeTagger:
		return newTaggerInstrument(ic), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, ic.Kind)
}

func (s *Station) buildKeithley(ic InstrumentConfig) (Instrument, error) {
	var transport scpi.Transport
	if ic.Simulation {
		transport = newSimSMUTransport()
	} else {
		var err error
		transport, err = scpi.DialTCP(scpi.TCPConfig{Address: ic.Address})
		if err != nil {
			return nil, err
		}
	}
	return keithley.New(ic.Name, transport,
		scpi.WithLogger(s.logger), scpi.WithAddress(ic.Address))
}

func (s *Station) buildKinesis(ic InstrumentConfig) (Instrument, error) {
	cfg := kinesis.Config{
		Serial:  ic.Serial,
		Polling: time.Duration(ic.PollingMS) * time.Millisecond,
		Home:    ic.Home,
		Logger:  s.logger,
	}

	var (
		lib kinesis.Library
		err error
	)
	if ic.Simulation {
		lib = simKinesisLibrary(ic)
	} else {
		lib, err = kinesis.NewDLL(kinesis.DLLConfig{
			Dir:    ic.DLLDir,
			Lib:    kinesisLibName(ic.Kind),
			Prefix: kinesisPrefix(ic.Kind),
		})
		if err != nil {
			return nil, err
		}
	}

	switch ic.Kind {
	case KindCageRotator:
		return kinesis.NewCageRotator(ic.Name, lib, cfg)
	case KindKCubeDCServo:
		return kinesis.NewKCubeDCServo(ic.Name, lib, cfg)
	case KindFilterFlipper:
		return kinesis.NewFilterFlipper(ic.Name, lib, cfg)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, ic.Kind)
}

// simKinesisLibrary populates a simulator with one device matching the
// configuration entry.
func simKinesisLibrary(ic InstrumentConfig) *kinesis.Simulator {
	hwType := kinesisHardwareType(ic.Kind)
	serial := ic.Serial
	if serial == "" {
		serial = fmt.Sprintf("%02d000001", int(hwType))
	}
	return kinesis.NewSimulator(kinesis.SimDevice{Type: hwType, Serial: serial})
}

func kinesisHardwareType(kind string) kinesis.HardwareType {
	switch kind {
	case KindCageRotator:
		return kinesis.HardwareTypeCageRotator
	case KindKCubeDCServo:
		return kinesis.HardwareTypeKCubeDCServo
	}
	return kinesis.HardwareTypeFilterFlipper
}

func kinesisLibName(kind string) string {
	switch kind {
	case KindCageRotator:
		return "IntegratedStepperMotors"
	case KindKCubeDCServo:
		return "KCube.DCServo"
	}
	return "FilterFlipper"
}

func kinesisPrefix(kind string) string {
	switch kind {
	case KindCageRotator:
		return "ISC"
	case KindKCubeDCServo:
		return "CC"
	}
	return "FF"
}

// taggerInstrument adapts a tagger connection to the station interface.
// The vendor SDK is only reachable through its simulator here; the
// connection carries the configuration parameters of its modules.
type taggerInstrument struct {
	name   string
	tagger timetagger.TaggerAPI
	params *parameter.Registry
}

func newTaggerInstrument(ic InstrumentConfig) *taggerInstrument {
	return &taggerInstrument{
		name:   ic.Name,
		tagger: &timetagger.SimTagger{Serial: ic.Serial, Model: "Time Tagger"},
		params: parameter.NewRegistry(),
	}
}

func (t *taggerInstrument) Name() string { return t.name }

func (t *taggerInstrument) Parameters() *parameter.Registry { return t.params }

func (t *taggerInstrument) Tagger() timetagger.TaggerAPI { return t.tagger }

func (t *taggerInstrument) Close() error { return nil }

var (
	_ Instrument = (*keithley.Keithley6430)(nil)
	_ Instrument = (*kinesis.CageRotator)(nil)
	_ Instrument = (*taggerInstrument)(nil)
)
