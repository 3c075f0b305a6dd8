package timetagger

// NoTimeout makes WaitUntilFinished block until the measurement
// finishes on its own.
const NoTimeout int64 = -1

// TaggerAPI is a connection handle to a tagger, real or proxied.
type TaggerAPI interface {
	// Configuration returns the device configuration as reported by
	// the SDK.
	Configuration() (map[string]any, error)
}

// MeasurementAPI is the control surface every measurement object has.
type MeasurementAPI interface {
	Start() error
	Stop() error
	Clear() error

	// StartFor runs the measurement for a duration in picoseconds,
	// optionally clearing accumulated data first.
	StartFor(duration int64, clear bool) error

	IsRunning() bool

	// WaitUntilFinished blocks until the measurement finishes or the
	// timeout in picoseconds elapses. NoTimeout blocks indefinitely.
	WaitUntilFinished(timeout int64) error

	// CaptureDuration is the accumulated capture time in picoseconds.
	CaptureDuration() (int64, error)
}

// VirtualChannelAPI is an SDK object that emits a derived event stream.
// Which channel accessor it provides depends on the concrete kind;
// see SingleChannel and MultiChannel.
type VirtualChannelAPI interface {
	virtualChannel()
}

// SingleChannel is implemented by virtual channel objects that expose
// one output channel.
type SingleChannel interface {
	Channel() int32
}

// MultiChannel is implemented by virtual channel objects that expose
// several output channels.
type MultiChannel interface {
	Channels() []int32
}

// SynchronizedAPI groups measurements so they start and stop together.
type SynchronizedAPI interface {
	// Tagger returns the proxy tagger handle measurements must be
	// created against to take part in the group.
	Tagger() TaggerAPI

	RegisterMeasurement(m MeasurementAPI) error
	UnregisterMeasurement(m MeasurementAPI) error

	Start() error
	Stop() error
	Clear() error
	StartFor(duration int64, clear bool) error
	IsRunning() bool
}
