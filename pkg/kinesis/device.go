package kinesis

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qutech-lab/labdrivers-go/pkg/log"
	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
)

// DefaultPolling is the status polling interval used when none is given.
const DefaultPolling = 200 * time.Millisecond

// moveCheckInterval paces the blocking wait of MoveToPosition.
const moveCheckInterval = 50 * time.Millisecond

// statusBitsMoving covers moving-clockwise and moving-counterclockwise.
const statusBitsMoving = 0x00000010 | 0x00000020

// Config holds the connection settings shared by all device families.
type Config struct {
	// Serial selects the device. Empty connects to the first device of
	// the family's hardware type found on the bus.
	Serial string

	// Polling is the status polling interval. Zero means DefaultPolling.
	Polling time.Duration

	// Simulation connects through the vendor simulation manager, which
	// must already be running. Give an explicit Serial in this mode, or
	// a real device may be picked up instead of a simulated one.
	Simulation bool

	// Home homes the device after connecting. Connecting fails if the
	// device cannot home.
	Home bool

	// Logger receives driver events. Nil discards them.
	Logger log.Logger
}

// Device is the state shared by all Kinesis device families. It is not
// used directly; the family types embed it.
type Device struct {
	name     string
	handleID string
	lib      Library
	hwType   HardwareType
	sim      bool

	serial  string
	polling time.Duration

	params *parameter.Registry
	logger log.Logger

	PollingDuration *parameter.Parameter
}

func newDevice(name string, lib Library, hwType HardwareType, cfg Config) (*Device, error) {
	d := &Device{
		name:     name,
		handleID: uuid.NewString(),
		lib:      lib,
		hwType:   hwType,
		sim:      cfg.Simulation,
		polling:  cfg.Polling,
		params:   parameter.NewRegistry(),
		logger:   cfg.Logger,
	}
	if d.polling <= 0 {
		d.polling = DefaultPolling
	}
	if d.logger == nil {
		d.logger = log.NoopLogger{}
	}

	if d.sim {
		d.lib.EnableSimulation()
	}
	if err := d.lib.BuildDeviceList(); err != nil {
		return nil, err
	}

	d.PollingDuration = parameter.New(parameter.Spec{
		Name: "polling_duration",
		Unit: "ms",
		Vals: parameter.AnyInt(),
		Get: func() (any, error) {
			return int(d.lib.PollingDuration() / time.Millisecond), nil
		},
		Set: func(v any) error { return d.setPollingDuration(v.(int)) },
	})
	d.params.MustAdd(d.PollingDuration)

	if err := d.Connect(cfg.Serial); err != nil {
		return nil, err
	}

	if cfg.Home {
		if !d.lib.CanHome() {
			d.Disconnect()
			return nil, fmt.Errorf("device %s cannot home", d.name)
		}
		if err := d.call("Home", d.lib.Home); err != nil {
			d.Disconnect()
			return nil, err
		}
	}
	return d, nil
}

// Name returns the station-assigned device name.
func (d *Device) Name() string { return d.name }

// HandleID returns the unique handle identifier for this connection.
func (d *Device) HandleID() string { return d.handleID }

// Serial returns the serial number of the connected device, or empty.
func (d *Device) Serial() string { return d.serial }

// Connected reports whether a device handle is open.
func (d *Device) Connected() bool { return d.serial != "" }

// HardwareType returns the family's vendor hardware type id.
func (d *Device) HardwareType() HardwareType { return d.hwType }

// Parameters returns the device's parameter registry.
func (d *Device) Parameters() *parameter.Registry { return d.params }

// ListAvailableDevices scans the bus for devices of this family.
func (d *Device) ListAvailableDevices() ([]string, error) {
	devices, err := ListAvailableDevices(d.lib, d.hwType)
	if err != nil {
		return nil, err
	}
	serials := make([]string, 0, len(devices))
	for _, dev := range devices {
		serials = append(serials, dev.Serial)
	}
	return serials, nil
}

// Connect opens the device, starts status polling, and loads the stored
// settings. Loading settings is required for unit conversion, which
// depends on motor parameters (gearing, pitch, steps per revolution).
//
// Connecting while already connected logs a warning and disconnects the
// previous handle first, so at most one handle per serial is ever open.
func (d *Device) Connect(serial string) error {
	if serial == "" {
		available, err := d.ListAvailableDevices()
		if err != nil {
			return err
		}
		if len(available) == 0 {
			return fmt.Errorf("%w: hardware type %s", ErrNoDevicesFound, d.hwType)
		}
		serial = available[0]
	}

	if d.Connected() {
		d.logWarning(
			fmt.Sprintf("already connected to device with serial %s, disconnecting", d.serial),
			"Connect")
		d.Disconnect()
	}

	if err := d.call("Open", func() error { return d.lib.Open(serial) }); err != nil {
		return err
	}
	d.serial = serial

	if err := d.call("StartPolling", func() error { return d.lib.StartPolling(d.polling) }); err != nil {
		d.lib.Close()
		d.serial = ""
		return err
	}
	if err := d.call("LoadSettings", d.lib.LoadSettings); err != nil {
		d.lib.StopPolling()
		d.lib.Close()
		d.serial = ""
		return err
	}

	d.logState("", "connected", fmt.Sprintf("%s serial %s", d.hwType, serial))
	return nil
}

// Disconnect stops polling and closes the device handle.
func (d *Device) Disconnect() {
	if d.sim {
		d.lib.DisableSimulation()
	}
	if !d.Connected() {
		return
	}
	d.lib.StopPolling()
	d.lib.Close()
	d.logState("connected", "disconnected", "")
	d.serial = ""
}

// Close disconnects the device. It satisfies io.Closer for station use.
func (d *Device) Close() error {
	d.Disconnect()
	return nil
}

// Identify flashes the device front panel light.
func (d *Device) Identify() {
	if !d.Connected() {
		return
	}
	d.lib.Identify()
}

// HardwareInfo returns the device description.
func (d *Device) HardwareInfo() (HardwareInfo, error) {
	if !d.Connected() {
		return HardwareInfo{}, ErrNotConnected
	}
	return d.lib.HardwareInfo()
}

// IsMoving reports whether the stage is in motion. Filter flippers
// always report false.
func (d *Device) IsMoving() (bool, error) {
	if !d.Connected() {
		return false, ErrNotConnected
	}
	if err := d.lib.RequestStatusBits(); err != nil {
		return false, err
	}
	bits, err := d.lib.StatusBits()
	if err != nil {
		return false, err
	}
	return bits&statusBitsMoving != 0, nil
}

// Home homes the device, establishing the reference position.
func (d *Device) Home() error {
	if !d.Connected() {
		return ErrNotConnected
	}
	return d.call("Home", d.lib.Home)
}

// CanHome reports whether the device supports homing.
func (d *Device) CanHome() bool {
	return d.Connected() && d.lib.CanHome()
}

// NeedsHoming reports whether the device must home before it can move.
func (d *Device) NeedsHoming() bool {
	return d.Connected() && !d.lib.CanMoveWithoutHomingFirst()
}

// NumberPositions returns the maximum position reachable by the device.
func (d *Device) NumberPositions() (int, error) {
	if !d.Connected() {
		return 0, ErrNotConnected
	}
	return d.lib.NumberPositions(), nil
}

// rawPosition refreshes the device status, waits one polling interval
// for the cached position to settle, and returns it in device units.
func (d *Device) rawPosition() (int, error) {
	if !d.Connected() {
		return 0, ErrNotConnected
	}
	if err := d.lib.RequestStatus(); err != nil {
		return 0, err
	}
	time.Sleep(d.lib.PollingDuration())
	return d.lib.Position(), nil
}

// moveToRaw moves to a position in device units. With block set, it
// polls the moving flag until the move completes.
func (d *Device) moveToRaw(position int, block bool) error {
	if !d.Connected() {
		return ErrNotConnected
	}
	err := d.call("MoveToPosition", func() error { return d.lib.MoveToPosition(position) })
	if err != nil {
		return err
	}

	for block {
		moving, err := d.IsMoving()
		if err != nil {
			return err
		}
		if !moving {
			break
		}
		time.Sleep(moveCheckInterval)
	}
	return nil
}

// setPollingDuration stops polling and restarts it with a new interval.
func (d *Device) setPollingDuration(ms int) error {
	if !d.Connected() {
		return ErrNotConnected
	}
	d.lib.StopPolling()
	return d.call("StartPolling", func() error {
		return d.lib.StartPolling(time.Duration(ms) * time.Millisecond)
	})
}

// deviceUnitFromReal converts a real world value to device units.
func (d *Device) deviceUnitFromReal(real float64, unit UnitType) (int, error) {
	if !unit.valid() {
		return 0, fmt.Errorf("invalid unit kind %s", unit)
	}
	if !d.Connected() {
		return 0, ErrNotConnected
	}
	return d.lib.DeviceUnitFromReal(real, unit)
}

// realFromDeviceUnit converts device units to a real world value.
func (d *Device) realFromDeviceUnit(device int, unit UnitType) (float64, error) {
	if !unit.valid() {
		return 0, fmt.Errorf("invalid unit kind %s", unit)
	}
	if !d.Connected() {
		return 0, ErrNotConnected
	}
	return d.lib.RealFromDeviceUnit(device, unit)
}

// call runs a vendor library call and mirrors it into the event log.
func (d *Device) call(function string, fn func() error) error {
	err := fn()

	event := log.Event{
		Timestamp:  time.Now(),
		HandleID:   d.handleID,
		Instrument: d.name,
		Address:    d.serial,
		Direction:  log.DirectionOut,
		Layer:      log.LayerDriver,
		Category:   log.CategoryCommand,
		NativeCall: &log.NativeCallEvent{Function: function},
	}
	var kerr *Error
	if errors.As(err, &kerr) {
		event.NativeCall.Code = &kerr.Code
	}
	d.logger.Log(event)
	return err
}

func (d *Device) logState(oldState, newState, reason string) {
	d.logger.Log(log.Event{
		Timestamp:  time.Now(),
		HandleID:   d.handleID,
		Instrument: d.name,
		Address:    d.serial,
		Direction:  log.DirectionNone,
		Layer:      log.LayerDriver,
		Category:   log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (d *Device) logWarning(message, context string) {
	d.logger.Log(log.Event{
		Timestamp:  time.Now(),
		HandleID:   d.handleID,
		Instrument: d.name,
		Address:    d.serial,
		Direction:  log.DirectionNone,
		Layer:      log.LayerDriver,
		Category:   log.CategoryWarning,
		Warning:    &log.WarningEvent{Message: message, Context: context},
	})
}
