package kinesis

import (
	"strings"
	"sync"
	"time"
)

// SimDevice describes one device visible to a Simulator.
type SimDevice struct {
	Type   HardwareType
	Serial string
}

// Simulator is an in-memory Library for tests and offline use.
//
// It models one controller with a configurable device list: positions,
// velocity profile, and unit conversion behave like a real controller,
// including the requirement that settings are loaded before units can
// be converted. Moves report the stage as moving for MovingPolls status
// requests before completing.
type Simulator struct {
	mu sync.Mutex

	// Devices is the bus population returned by discovery.
	Devices []SimDevice

	// UnitScale is the device-units-per-real-unit factor per unit kind.
	// Unset kinds convert 1:1.
	UnitScale map[UnitType]float64

	// MovingPolls is how many status requests a move stays in flight.
	MovingPolls int

	// Info is returned by HardwareInfo.
	Info HardwareInfo

	listBuilt      bool
	open           string
	openType       HardwareType
	polling        time.Duration
	settingsLoaded bool
	simEnabled     bool

	position     int
	movesLeft    int
	acceleration int
	maxVelocity  int
	jog          JogMode
	stop         StopMode
	transit      int

	calls []string
}

// NewSimulator creates a simulator populated with the given devices.
func NewSimulator(devices ...SimDevice) *Simulator {
	return &Simulator{
		Devices:      devices,
		acceleration: 10,
		maxVelocity:  100,
		jog:          JogModeSingleStep,
		stop:         StopModeProfiled,
		transit:      500,
	}
}

// Calls returns the vendor functions invoked so far, in order.
func (s *Simulator) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]string, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// OpenSerial returns the serial of the currently open device, or empty.
func (s *Simulator) OpenSerial() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// SettingsLoaded reports whether LoadSettings has been called on the
// open handle.
func (s *Simulator) SettingsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settingsLoaded
}

// SetPosition overrides the simulated stage position in device units.
func (s *Simulator) SetPosition(position int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position
}

func (s *Simulator) record(name string) {
	s.calls = append(s.calls, name)
}

func (s *Simulator) vendorError(code int) error {
	return &Error{Code: code, Name: errorNames[code], Message: errorMessages[errorNames[code]]}
}

func (s *Simulator) BuildDeviceList() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("BuildDeviceList")
	s.listBuilt = true
	return nil
}

func (s *Simulator) DeviceListSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeviceListSize")
	// Open devices do not appear in the list.
	n := 0
	for _, dev := range s.Devices {
		if dev.Serial != s.open {
			n++
		}
	}
	return n
}

func (s *Simulator) DeviceListByType(hwTypeID int, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeviceListByType")

	if !s.listBuilt {
		return s.vendorError(2) // FT_DeviceNotFound
	}

	var serials []string
	for _, dev := range s.Devices {
		if int(dev.Type) == hwTypeID && dev.Serial != s.open {
			serials = append(serials, dev.Serial)
		}
	}
	joined := strings.Join(serials, ",")
	if joined != "" {
		joined += ","
	}
	if len(joined)+1 > len(buf) {
		return s.vendorError(5) // FT_InsufficientResources
	}
	copy(buf, joined)
	return nil
}

func (s *Simulator) Open(serial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Open")

	if s.open != "" {
		return s.vendorError(0x20) // TL_ALREADY_OPEN
	}
	for _, dev := range s.Devices {
		if dev.Serial == serial {
			s.open = serial
			s.openType = dev.Type
			return nil
		}
	}
	return s.vendorError(2) // FT_DeviceNotFound
}

func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Close")
	s.open = ""
	s.settingsLoaded = false
	s.polling = 0
}

func (s *Simulator) StartPolling(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("StartPolling")
	if interval <= 0 {
		return ErrUnspecifiedFailure
	}
	s.polling = interval
	return nil
}

func (s *Simulator) StopPolling() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("StopPolling")
	s.polling = 0
}

func (s *Simulator) PollingDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("PollingDuration")
	return s.polling
}

func (s *Simulator) LoadSettings() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("LoadSettings")
	if s.open == "" {
		return ErrUnspecifiedFailure
	}
	s.settingsLoaded = true
	return nil
}

func (s *Simulator) RequestStatus() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("RequestStatus")
	if s.open == "" {
		return s.vendorError(3) // FT_DeviceNotOpened
	}
	return nil
}

func (s *Simulator) RequestStatusBits() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("RequestStatusBits")
	if s.open == "" {
		return s.vendorError(3)
	}
	if s.movesLeft > 0 {
		s.movesLeft--
	}
	return nil
}

func (s *Simulator) StatusBits() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetStatusBits")
	if s.openType == HardwareTypeFilterFlipper {
		// Flippers never report motion.
		return 0, nil
	}
	if s.movesLeft > 0 {
		return 0x00000010, nil
	}
	return 0, nil
}

func (s *Simulator) Identify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Identify")
}

func (s *Simulator) NumberPositions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetNumberPositions")
	if s.openType == HardwareTypeFilterFlipper {
		return 2
	}
	return 1 << 20
}

func (s *Simulator) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetPosition")
	return s.position
}

func (s *Simulator) MoveToPosition(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("MoveToPosition")
	if s.open == "" {
		return s.vendorError(3)
	}
	if s.openType == HardwareTypeFilterFlipper && position != 1 && position != 2 {
		return s.vendorError(0x26) // TL_INVALID_POSITION
	}
	s.position = position
	s.movesLeft = s.MovingPolls
	return nil
}

func (s *Simulator) MoveRelative(displacement int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("MoveRelative")
	if s.open == "" {
		return s.vendorError(3)
	}
	s.position += displacement
	s.movesLeft = s.MovingPolls
	return nil
}

func (s *Simulator) MoveAtVelocity(direction TravelDirection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("MoveAtVelocity")
	if direction != TravelForwards && direction != TravelReverse {
		return s.vendorError(0x27) // TL_INVALID_VELOCITY_PARAMETER
	}
	s.movesLeft = s.MovingPolls
	return nil
}

func (s *Simulator) Home() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Home")
	if s.open == "" {
		return s.vendorError(3)
	}
	s.position = 0
	s.movesLeft = s.MovingPolls
	return nil
}

func (s *Simulator) CanHome() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CanHome")
	return s.openType != HardwareTypeFilterFlipper
}

func (s *Simulator) CanMoveWithoutHomingFirst() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CanMoveWithoutHomingFirst")
	return true
}

func (s *Simulator) StopImmediate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("StopImmediate")
	s.movesLeft = 0
	return nil
}

func (s *Simulator) StopProfiled() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("StopProfiled")
	s.movesLeft = 0
	return nil
}

func (s *Simulator) EnableChannel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("EnableChannel")
	return nil
}

func (s *Simulator) DisableChannel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DisableChannel")
	return nil
}

func (s *Simulator) VelParams() (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetVelParams")
	if err := s.motorOnly(); err != nil {
		return 0, 0, err
	}
	return s.acceleration, s.maxVelocity, nil
}

func (s *Simulator) SetVelParams(acceleration, maxVelocity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SetVelParams")
	if err := s.motorOnly(); err != nil {
		return err
	}
	if maxVelocity <= 0 {
		return s.vendorError(0x27)
	}
	s.acceleration = acceleration
	s.maxVelocity = maxVelocity
	return nil
}

func (s *Simulator) JogMode() (JogMode, StopMode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetJogMode")
	if err := s.motorOnly(); err != nil {
		return JogModeUndefined, StopModeUndefined, err
	}
	return s.jog, s.stop, nil
}

func (s *Simulator) SetJogMode(jog JogMode, stop StopMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SetJogMode")
	if err := s.motorOnly(); err != nil {
		return err
	}
	s.jog = jog
	s.stop = stop
	return nil
}

func (s *Simulator) SetRotationModes(mode MovementMode, direction MovementDirection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SetRotationModes")
	return s.motorOnly()
}

func (s *Simulator) ResetRotationModes() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ResetRotationModes")
	return s.motorOnly()
}

func (s *Simulator) TransitTime() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetTransitTime")
	if err := s.flipperOnly(); err != nil {
		return 0, err
	}
	return s.transit, nil
}

func (s *Simulator) SetTransitTime(ms int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SetTransitTime")
	if err := s.flipperOnly(); err != nil {
		return err
	}
	if ms < MinTransitTime || ms > MaxTransitTime {
		return s.vendorError(6) // FT_InvalidParameter
	}
	s.transit = ms
	return nil
}

func (s *Simulator) HardwareInfo() (HardwareInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetHardwareInfo")
	if s.open == "" {
		return HardwareInfo{}, s.vendorError(3)
	}
	return s.Info, nil
}

func (s *Simulator) DeviceUnitFromReal(real float64, unit UnitType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetDeviceUnitFromRealValue")
	if !s.settingsLoaded {
		return 0, s.vendorError(0x2E) // TL_NO_MOTOR_INFO
	}
	return int(real * s.scale(unit)), nil
}

func (s *Simulator) RealFromDeviceUnit(device int, unit UnitType) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetRealValueFromDeviceUnit")
	if !s.settingsLoaded {
		return 0, s.vendorError(0x2E)
	}
	return float64(device) / s.scale(unit), nil
}

func (s *Simulator) EnableSimulation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("TLI_InitializeSimulations")
	s.simEnabled = true
}

func (s *Simulator) DisableSimulation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("TLI_UninitializeSimulations")
	s.simEnabled = false
}

func (s *Simulator) scale(unit UnitType) float64 {
	if f, ok := s.UnitScale[unit]; ok && f != 0 {
		return f
	}
	return 1
}

func (s *Simulator) motorOnly() error {
	if s.openType == HardwareTypeFilterFlipper {
		return s.vendorError(0x22) // TL_NOT_IMPLEMENTED
	}
	return nil
}

func (s *Simulator) flipperOnly() error {
	if s.openType != HardwareTypeFilterFlipper {
		return s.vendorError(0x22)
	}
	return nil
}

var _ Library = (*Simulator)(nil)
