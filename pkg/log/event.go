package log

import (
	"time"
)

// Event represents one instrument I/O event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// HandleID uniquely identifies the device handle (UUID, assigned at
	// connect time).
	HandleID string `cbor:"2,keyasint"`

	// Instrument is the station-assigned instrument name.
	Instrument string `cbor:"3,keyasint,omitempty"`

	// Direction indicates data flow relative to the host.
	Direction Direction `cbor:"4,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"5,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"6,keyasint"`

	// Address is the instrument address (host:port, serial device, or
	// serial number).
	Address string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Exchange    *ExchangeEvent    `cbor:"10,keyasint,omitempty"` // Transport layer
	NativeCall  *NativeCallEvent  `cbor:"11,keyasint,omitempty"` // Native library call
	Parameter   *ParameterEvent   `cbor:"12,keyasint,omitempty"` // Parameter get/set
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"` // Handle lifecycle
	Warning     *WarningEvent     `cbor:"14,keyasint,omitempty"` // Non-fatal advisories
	Error       *ErrorEventData   `cbor:"15,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionOut indicates data sent to the instrument.
	DirectionOut Direction = 0
	// DirectionIn indicates data received from the instrument.
	DirectionIn Direction = 1
	// DirectionNone indicates an event with no data flow (state, warning).
	DirectionNone Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "OUT"
	case DirectionIn:
		return "IN"
	case DirectionNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the wire layer (raw command/reply text).
	LayerTransport Layer = 0
	// LayerDriver is the driver layer (native calls, parameters, state).
	LayerDriver Layer = 1
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerDriver:
		return "DRIVER"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryCommand indicates a command or write.
	CategoryCommand Category = 0
	// CategoryReply indicates a reply to a query.
	CategoryReply Category = 1
	// CategoryParameter indicates a parameter get/set.
	CategoryParameter Category = 2
	// CategoryState indicates a handle state change.
	CategoryState Category = 3
	// CategoryWarning indicates a non-fatal advisory.
	CategoryWarning Category = 4
	// CategoryError indicates an error event.
	CategoryError Category = 5
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "COMMAND"
	case CategoryReply:
		return "REPLY"
	case CategoryParameter:
		return "PARAMETER"
	case CategoryState:
		return "STATE"
	case CategoryWarning:
		return "WARNING"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ExchangeEvent captures one line of SCPI traffic at the transport layer.
type ExchangeEvent struct {
	// Text is the command or reply line, without the terminator.
	Text string `cbor:"1,keyasint"`

	// Query indicates the command expects a reply.
	Query bool `cbor:"2,keyasint,omitempty"`
}

// NativeCallEvent captures a call into a vendor native library.
type NativeCallEvent struct {
	// Function is the full native function name (e.g. "ISC_MoveToPosition").
	Function string `cbor:"1,keyasint"`

	// Args is a rendered form of the arguments, if any.
	Args string `cbor:"2,keyasint,omitempty"`

	// Code is the raw return code, when the function reports one.
	Code *int `cbor:"3,keyasint,omitempty"`
}

// ParameterEvent captures a parameter access at the driver layer.
type ParameterEvent struct {
	// Name is the parameter name.
	Name string `cbor:"1,keyasint"`

	// Value is the user-facing value read or written.
	Value any `cbor:"2,keyasint,omitempty"`

	// Unit is the declared parameter unit.
	Unit string `cbor:"3,keyasint,omitempty"`

	// Set is true for writes, false for reads.
	Set bool `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures device handle lifecycle events.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// WarningEvent captures a non-fatal advisory, e.g. a stale-read warning
// when a measured quantity is read outside its active sensing mode.
type WarningEvent struct {
	// Message is the warning text.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation triggered the warning.
	Context string `cbor:"2,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the vendor error code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
