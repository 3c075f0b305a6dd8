package scpi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qutech-lab/labdrivers-go/pkg/log"
	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
)

// ReplyParser converts a raw reply string into a typed value.
type ReplyParser func(reply string) (any, error)

// ParseFloat parses the reply as a float64.
func ParseFloat(reply string) (any, error) {
	return strconv.ParseFloat(strings.TrimSpace(reply), 64)
}

// ParseInt parses the reply as an int. Instruments report integers in
// exponent notation ("+1.00000E+01"), so the float path is used first.
func ParseInt(reply string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return nil, err
	}
	return int(f), nil
}

// ParseString returns the reply verbatim, whitespace trimmed.
func ParseString(reply string) (any, error) {
	return strings.TrimSpace(reply), nil
}

// ParseQuotedString strips surrounding quotes from the reply.
func ParseQuotedString(reply string) (any, error) {
	return strings.Trim(strings.TrimSpace(reply), `"`), nil
}

// Command declares a parameter bound to a SCPI command pair.
type Command struct {
	// Name identifies the parameter.
	Name string

	// Label is the human-readable name. Defaults to Name.
	Label string

	// Unit is the physical unit of the user-facing value.
	Unit string

	// GetCmd is the query string. Empty makes the parameter write-only.
	GetCmd string

	// SetCmd is the write format with a %v placeholder for the value.
	// Empty makes the parameter read-only.
	SetCmd string

	// Parser converts query replies. Defaults to ParseString.
	Parser ReplyParser

	// Vals validates values before any transport write.
	Vals parameter.Validator

	// Mapping translates user values to instrument tokens and back.
	Mapping *parameter.ValueMapping

	// SnapshotExclude omits the parameter from snapshots.
	SnapshotExclude bool
}

// IDN is the parsed *IDN? identification reply.
type IDN struct {
	Vendor   string
	Model    string
	Serial   string
	Firmware string
}

// Instrument binds one SCPI device handle to a transport and a parameter
// registry. Exactly one Instrument exists per physical device.
type Instrument struct {
	name      string
	address   string
	handleID  string
	transport Transport
	params    *parameter.Registry
	logger    log.Logger
}

// Option configures an Instrument.
type Option func(*Instrument)

// WithLogger attaches an instrument event logger.
func WithLogger(logger log.Logger) Option {
	return func(i *Instrument) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithAddress records the instrument address for log events.
func WithAddress(address string) Option {
	return func(i *Instrument) { i.address = address }
}

// NewInstrument creates an instrument bound to the given transport.
func NewInstrument(name string, transport Transport, opts ...Option) *Instrument {
	inst := &Instrument{
		name:      name,
		handleID:  uuid.NewString(),
		transport: transport,
		params:    parameter.NewRegistry(),
		logger:    log.NoopLogger{},
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// Name returns the station-assigned instrument name.
func (i *Instrument) Name() string { return i.name }

// HandleID returns the unique handle identifier for this connection.
func (i *Instrument) HandleID() string { return i.handleID }

// Parameters returns the instrument's parameter registry.
func (i *Instrument) Parameters() *parameter.Registry { return i.params }

// Ask sends a query and returns the reply, mirroring both into the event log.
func (i *Instrument) Ask(cmd string) (string, error) {
	i.logExchange(log.DirectionOut, log.CategoryCommand, cmd, true)
	reply, err := i.transport.Ask(cmd)
	if err != nil {
		i.logError(fmt.Sprintf("query %s failed", cmd), err)
		return "", err
	}
	i.logExchange(log.DirectionIn, log.CategoryReply, reply, false)
	return reply, nil
}

// Write sends a command without reading a reply.
func (i *Instrument) Write(cmd string) error {
	i.logExchange(log.DirectionOut, log.CategoryCommand, cmd, false)
	if err := i.transport.Write(cmd); err != nil {
		i.logError(fmt.Sprintf("write %s failed", cmd), err)
		return err
	}
	return nil
}

// Writef formats and sends a command.
func (i *Instrument) Writef(format string, args ...any) error {
	return i.Write(fmt.Sprintf(format, args...))
}

// AddCommand declares a parameter bound to a SCPI command pair and
// registers it. Name collisions are an error.
func (i *Instrument) AddCommand(cmd Command) (*parameter.Parameter, error) {
	spec := parameter.Spec{
		Name:            cmd.Name,
		Label:           cmd.Label,
		Unit:            cmd.Unit,
		Vals:            cmd.Vals,
		Mapping:         cmd.Mapping,
		SnapshotExclude: cmd.SnapshotExclude,
	}

	parser := cmd.Parser
	if parser == nil {
		parser = ParseString
	}

	if cmd.GetCmd != "" {
		getCmd := cmd.GetCmd
		spec.Get = func() (any, error) { return i.Ask(getCmd) }
		spec.GetParser = func(v any) (any, error) { return parser(v.(string)) }
	}
	if cmd.SetCmd != "" {
		setCmd := cmd.SetCmd
		spec.Set = func(v any) error { return i.Writef(setCmd, v) }
	}

	p := parameter.New(i.instrumented(spec))
	if err := i.params.Add(p); err != nil {
		return nil, err
	}
	return p, nil
}

// MustAddCommand is AddCommand panicking on name collisions.
// Intended for driver constructors.
func (i *Instrument) MustAddCommand(cmd Command) *parameter.Parameter {
	p, err := i.AddCommand(cmd)
	if err != nil {
		panic(err)
	}
	return p
}

// AddParameter registers a parameter built from a raw spec (for getters
// and setters that need more than one command). Parameter accesses are
// mirrored into the event log.
func (i *Instrument) AddParameter(spec parameter.Spec) (*parameter.Parameter, error) {
	p := parameter.New(i.instrumented(spec))
	if err := i.params.Add(p); err != nil {
		return nil, err
	}
	return p, nil
}

// MustAddParameter is AddParameter panicking on name collisions.
func (i *Instrument) MustAddParameter(spec parameter.Spec) *parameter.Parameter {
	p, err := i.AddParameter(spec)
	if err != nil {
		panic(err)
	}
	return p
}

// instrumented wraps a spec's accessors with parameter event logging.
func (i *Instrument) instrumented(spec parameter.Spec) parameter.Spec {
	name, unit := spec.Name, spec.Unit

	if get := spec.Get; get != nil {
		parser := spec.GetParser
		spec.GetParser = func(v any) (any, error) {
			value := v
			var err error
			if parser != nil {
				if value, err = parser(v); err != nil {
					return nil, err
				}
			}
			i.logParameter(name, unit, value, false)
			return value, nil
		}
	}
	if set := spec.Set; set != nil {
		spec.Set = func(v any) error {
			if err := set(v); err != nil {
				return err
			}
			i.logParameter(name, unit, v, true)
			return nil
		}
	}
	return spec
}

// GetIDN queries and parses the *IDN? identification string.
func (i *Instrument) GetIDN() (IDN, error) {
	reply, err := i.Ask("*IDN?")
	if err != nil {
		return IDN{}, err
	}

	parts := strings.SplitN(reply, ",", 4)
	idn := IDN{}
	if len(parts) > 0 {
		idn.Vendor = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		idn.Model = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		idn.Serial = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		idn.Firmware = strings.TrimSpace(parts[3])
	}
	return idn, nil
}

// LogConnectMessage records the connect state change in the event log.
func (i *Instrument) LogConnectMessage(idn IDN) {
	i.logger.Log(log.Event{
		Timestamp:  time.Now(),
		HandleID:   i.handleID,
		Instrument: i.name,
		Address:    i.address,
		Direction:  log.DirectionNone,
		Layer:      log.LayerDriver,
		Category:   log.CategoryState,
		StateChange: &log.StateChangeEvent{
			NewState: "connected",
			Reason:   fmt.Sprintf("%s %s (serial %s, firmware %s)", idn.Vendor, idn.Model, idn.Serial, idn.Firmware),
		},
	})
}

// LogWarning records a non-fatal advisory in the event log.
func (i *Instrument) LogWarning(message, context string) {
	i.logger.Log(log.Event{
		Timestamp:  time.Now(),
		HandleID:   i.handleID,
		Instrument: i.name,
		Address:    i.address,
		Direction:  log.DirectionNone,
		Layer:      log.LayerDriver,
		Category:   log.CategoryWarning,
		Warning:    &log.WarningEvent{Message: message, Context: context},
	})
}

// Close closes the underlying transport and records the state change.
func (i *Instrument) Close() error {
	err := i.transport.Close()
	i.logger.Log(log.Event{
		Timestamp:  time.Now(),
		HandleID:   i.handleID,
		Instrument: i.name,
		Address:    i.address,
		Direction:  log.DirectionNone,
		Layer:      log.LayerDriver,
		Category:   log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: "connected",
			NewState: "closed",
		},
	})
	return err
}

func (i *Instrument) logExchange(direction log.Direction, category log.Category, text string, query bool) {
	i.logger.Log(log.Event{
		Timestamp:  time.Now(),
		HandleID:   i.handleID,
		Instrument: i.name,
		Address:    i.address,
		Direction:  direction,
		Layer:      log.LayerTransport,
		Category:   category,
		Exchange:   &log.ExchangeEvent{Text: text, Query: query},
	})
}

func (i *Instrument) logParameter(name, unit string, value any, set bool) {
	i.logger.Log(log.Event{
		Timestamp:  time.Now(),
		HandleID:   i.handleID,
		Instrument: i.name,
		Address:    i.address,
		Direction:  log.DirectionNone,
		Layer:      log.LayerDriver,
		Category:   log.CategoryParameter,
		Parameter:  &log.ParameterEvent{Name: name, Value: value, Unit: unit, Set: set},
	})
}

func (i *Instrument) logError(context string, err error) {
	i.logger.Log(log.Event{
		Timestamp:  time.Now(),
		HandleID:   i.handleID,
		Instrument: i.name,
		Address:    i.address,
		Direction:  log.DirectionNone,
		Layer:      log.LayerTransport,
		Category:   log.CategoryError,
		Error:      &log.ErrorEventData{Layer: log.LayerTransport, Message: err.Error(), Context: context},
	})
}
