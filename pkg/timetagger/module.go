package timetagger

import (
	"fmt"

	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
)

// Module is the common state of measurement and virtual channel
// modules: a name, the tagger connection the SDK object is created
// against, and a parameter registry.
type Module struct {
	name   string
	tagger TaggerAPI
	params *parameter.Registry
}

func newModule(name string, tagger TaggerAPI) Module {
	return Module{
		name:   name,
		tagger: tagger,
		params: parameter.NewRegistry(),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Tagger returns the tagger connection the module was created against.
func (m *Module) Tagger() TaggerAPI { return m.tagger }

// Parameters returns the module's parameter registry.
func (m *Module) Parameters() *parameter.Registry { return m.params }

// Configuration returns the tagger configuration as reported by the SDK.
func (m *Module) Configuration() (map[string]any, error) {
	return m.tagger.Configuration()
}

// Measurement wraps one SDK measurement object behind a cached handle.
type Measurement struct {
	Module
	handle *CachedHandle

	// CaptureDuration is the accumulated capture time in picoseconds.
	// Get-only; every read queries the SDK object.
	CaptureDuration *parameter.Parameter
}

// NewMeasurement creates a measurement module. The compute function
// builds the SDK object; it only runs once every prerequisite
// parameter holds a valid value.
func NewMeasurement(name string, tagger TaggerAPI,
	compute func() (MeasurementAPI, error),
	prereqs ...*parameter.Parameter) *Measurement {

	m := &Measurement{Module: newModule(name, tagger)}
	m.handle = NewCachedHandle(func() (any, error) { return compute() }, prereqs...)

	m.CaptureDuration = parameter.New(parameter.Spec{
		Name:  "capture_duration",
		Label: "Capture duration",
		Unit:  "ps",
		Get: func() (any, error) {
			api, err := m.API()
			if err != nil {
				return nil, err
			}
			return api.CaptureDuration()
		},
	})
	m.params.MustAdd(m.CaptureDuration)

	return m
}

// API returns the SDK measurement object, computing it on first use.
func (m *Measurement) API() (MeasurementAPI, error) {
	v, err := m.handle.Get()
	if err != nil {
		return nil, err
	}
	return v.(MeasurementAPI), nil
}

// Invalidate drops the cached SDK object so the next access rebuilds
// it with the current configuration.
func (m *Measurement) Invalidate() { m.handle.Invalidate() }

// RequireParameters declares parameters that must hold valid values
// before the SDK object can be built. Call during driver construction,
// typically with the parameters returned by ConfigParameter.
func (m *Measurement) RequireParameters(params ...*parameter.Parameter) {
	m.handle.prereqs = append(m.handle.prereqs, params...)
}

// ConfigParameter registers a parameter whose set invalidates the
// cached SDK object, so configuration changes take effect on the next
// access.
func (m *Measurement) ConfigParameter(spec parameter.Spec) *parameter.Parameter {
	prev := spec.SetSideEffect
	spec.SetSideEffect = func(v any) {
		m.handle.Invalidate()
		if prev != nil {
			prev(v)
		}
	}
	p := parameter.New(spec)
	m.params.MustAdd(p)
	return p
}

// Start begins or resumes data accumulation.
func (m *Measurement) Start() error {
	api, err := m.API()
	if err != nil {
		return err
	}
	return api.Start()
}

// Stop halts data accumulation.
func (m *Measurement) Stop() error {
	api, err := m.API()
	if err != nil {
		return err
	}
	return api.Stop()
}

// Clear discards accumulated data.
func (m *Measurement) Clear() error {
	api, err := m.API()
	if err != nil {
		return err
	}
	return api.Clear()
}

// StartFor runs the measurement for a duration in picoseconds.
func (m *Measurement) StartFor(duration int64, clear bool) error {
	api, err := m.API()
	if err != nil {
		return err
	}
	return api.StartFor(duration, clear)
}

// IsRunning reports whether the measurement is accumulating data.
func (m *Measurement) IsRunning() (bool, error) {
	api, err := m.API()
	if err != nil {
		return false, err
	}
	return api.IsRunning(), nil
}

// WaitUntilFinished blocks until the measurement finishes or the
// timeout in picoseconds elapses. Pass NoTimeout to wait indefinitely.
func (m *Measurement) WaitUntilFinished(timeout int64) error {
	api, err := m.API()
	if err != nil {
		return err
	}
	return api.WaitUntilFinished(timeout)
}

// VirtualChannel wraps one SDK virtual channel object behind a cached
// handle.
type VirtualChannel struct {
	Module
	handle *CachedHandle
}

// NewVirtualChannel creates a virtual channel module.
func NewVirtualChannel(name string, tagger TaggerAPI,
	compute func() (VirtualChannelAPI, error),
	prereqs ...*parameter.Parameter) *VirtualChannel {

	v := &VirtualChannel{Module: newModule(name, tagger)}
	v.handle = NewCachedHandle(func() (any, error) { return compute() }, prereqs...)
	return v
}

// API returns the SDK virtual channel object, computing it on first use.
func (v *VirtualChannel) API() (VirtualChannelAPI, error) {
	value, err := v.handle.Get()
	if err != nil {
		return nil, err
	}
	return value.(VirtualChannelAPI), nil
}

// Invalidate drops the cached SDK object.
func (v *VirtualChannel) Invalidate() { v.handle.Invalidate() }

// RequireParameters declares parameters that must hold valid values
// before the SDK object can be built.
func (v *VirtualChannel) RequireParameters(params ...*parameter.Parameter) {
	v.handle.prereqs = append(v.handle.prereqs, params...)
}

// ConfigParameter registers a parameter whose set invalidates the
// cached SDK object.
func (v *VirtualChannel) ConfigParameter(spec parameter.Spec) *parameter.Parameter {
	prev := spec.SetSideEffect
	spec.SetSideEffect = func(value any) {
		v.handle.Invalidate()
		if prev != nil {
			prev(value)
		}
	}
	p := parameter.New(spec)
	v.params.MustAdd(p)
	return p
}

// Channel returns the single output channel. Kinds that emit several
// channels do not provide it; the error points at Channels.
func (v *VirtualChannel) Channel() (int32, error) {
	api, err := v.API()
	if err != nil {
		return 0, err
	}
	single, ok := api.(SingleChannel)
	if !ok {
		return 0, fmt.Errorf(
			"the %T API does not provide a Channel() method, try Channels()", api)
	}
	return single.Channel(), nil
}

// Channels returns the output channels. Kinds that emit a single
// channel do not provide it; the error points at Channel.
func (v *VirtualChannel) Channels() ([]int32, error) {
	api, err := v.API()
	if err != nil {
		return nil, err
	}
	multi, ok := api.(MultiChannel)
	if !ok {
		return nil, fmt.Errorf(
			"the %T API does not provide a Channels() method, try Channel()", api)
	}
	return multi.Channels(), nil
}

// SynchronizedMeasurements groups measurements so they start, stop,
// and clear together. Measurements taking part must be created against
// the group's proxy tagger handle.
type SynchronizedMeasurements struct {
	name string
	api  SynchronizedAPI
}

// NewSynchronizedMeasurements creates a measurement group.
func NewSynchronizedMeasurements(name string, api SynchronizedAPI) *SynchronizedMeasurements {
	return &SynchronizedMeasurements{name: name, api: api}
}

// Name returns the group name.
func (s *SynchronizedMeasurements) Name() string { return s.name }

// Tagger returns the proxy tagger handle for creating group members.
func (s *SynchronizedMeasurements) Tagger() TaggerAPI { return s.api.Tagger() }

// Register adds a measurement to the group.
func (s *SynchronizedMeasurements) Register(m *Measurement) error {
	api, err := m.API()
	if err != nil {
		return err
	}
	return s.api.RegisterMeasurement(api)
}

// Unregister removes a measurement from the group.
func (s *SynchronizedMeasurements) Unregister(m *Measurement) error {
	api, err := m.API()
	if err != nil {
		return err
	}
	return s.api.UnregisterMeasurement(api)
}

// Start begins data accumulation for all group members.
func (s *SynchronizedMeasurements) Start() error { return s.api.Start() }

// Stop halts data accumulation for all group members.
func (s *SynchronizedMeasurements) Stop() error { return s.api.Stop() }

// Clear discards accumulated data for all group members.
func (s *SynchronizedMeasurements) Clear() error { return s.api.Clear() }

// StartFor runs all group members for a duration in picoseconds.
func (s *SynchronizedMeasurements) StartFor(duration int64, clear bool) error {
	return s.api.StartFor(duration, clear)
}

// IsRunning reports whether the group is accumulating data.
func (s *SynchronizedMeasurements) IsRunning() bool { return s.api.IsRunning() }
