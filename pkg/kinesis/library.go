package kinesis

import "time"

// HardwareInfo is the device description reported by GetHardwareInfo.
type HardwareInfo struct {
	Model             string
	Type              int
	NumChannels       int
	Notes             string
	Firmware          string
	HardwareVersion   int
	ModificationState int
}

// Library is the vendor function surface used by the drivers.
//
// The vendor addresses a device by passing its serial number to every
// call; implementations bind the serial at Open and keep it until Close.
// Methods outside a device family's capability set return an Error with
// code TL_NOT_IMPLEMENTED when called on the wrong family.
type Library interface {
	// Device list. BuildDeviceList scans the bus; it must be called
	// before any by-type query. DeviceListByType writes the
	// comma-separated serials of one hardware type id into buf.
	BuildDeviceList() error
	DeviceListSize() int
	DeviceListByType(hwTypeID int, buf []byte) error

	// Connection and polling.
	Open(serial string) error
	Close()
	StartPolling(interval time.Duration) error
	StopPolling()
	PollingDuration() time.Duration
	LoadSettings() error

	// Status. Position and status bits are cached device-side; a request
	// call asks the device to refresh them.
	RequestStatus() error
	RequestStatusBits() error
	StatusBits() (uint32, error)

	// Motion.
	Identify()
	NumberPositions() int
	Position() int
	MoveToPosition(position int) error
	MoveRelative(displacement int) error
	MoveAtVelocity(direction TravelDirection) error
	Home() error
	CanHome() bool
	CanMoveWithoutHomingFirst() bool
	StopImmediate() error
	StopProfiled() error
	EnableChannel() error
	DisableChannel() error

	// Velocity profile and modes.
	VelParams() (acceleration, maxVelocity int, err error)
	SetVelParams(acceleration, maxVelocity int) error
	JogMode() (JogMode, StopMode, error)
	SetJogMode(jog JogMode, stop StopMode) error
	SetRotationModes(mode MovementMode, direction MovementDirection) error
	ResetRotationModes() error

	// Filter flipper transit time, milliseconds, range 300 to 2800.
	TransitTime() (int, error)
	SetTransitTime(ms int) error

	HardwareInfo() (HardwareInfo, error)

	// Unit conversion. Settings must be loaded first; without motor
	// parameters the calls fail with TL_NO_MOTOR_INFO.
	DeviceUnitFromReal(real float64, unit UnitType) (int, error)
	RealFromDeviceUnit(device int, unit UnitType) (float64, error)

	// Simulation manager hooks.
	EnableSimulation()
	DisableSimulation()
}
