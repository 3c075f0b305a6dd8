//go:build windows

package kinesis

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// DefaultDLLDir is where the vendor installer places the libraries.
const DefaultDLLDir = `C:\Program Files\Thorlabs\Kinesis`

// DLLConfig selects a vendor library and its function prefix.
type DLLConfig struct {
	// Dir is the DLL directory. Empty means DefaultDLLDir.
	Dir string

	// Lib is the library name, with or without the
	// "Thorlabs.MotionControl." prefix and ".dll" suffix.
	Lib string

	// Prefix is the function prefix of the device family (ISC, CC, FF).
	Prefix string
}

// dllLibrary is the Library implementation backed by a vendor DLL.
type dllLibrary struct {
	dll    *windows.LazyDLL
	prefix string
	serial []byte
}

// NewDLL loads a vendor library. The load is lazy; a missing DLL
// surfaces on the first call.
func NewDLL(cfg DLLConfig) (Library, error) {
	lib := cfg.Lib
	if !strings.HasPrefix(lib, "Thorlabs.MotionControl.") {
		lib = "Thorlabs.MotionControl." + lib
	}
	if !strings.HasSuffix(lib, ".dll") {
		lib += ".dll"
	}
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDLLDir
	}
	if cfg.Prefix == "" {
		return nil, fmt.Errorf("function prefix is required")
	}
	return &dllLibrary{
		dll:    windows.NewLazyDLL(filepath.Join(dir, lib)),
		prefix: cfg.Prefix,
	}, nil
}

// proc resolves a prefixed device function, e.g. ISC_MoveToPosition.
func (l *dllLibrary) proc(name string) *windows.LazyProc {
	return l.dll.NewProc(l.prefix + "_" + name)
}

// serialArg returns the serial string pointer passed as the first
// argument of every prefixed call.
func (l *dllLibrary) serialArg() uintptr {
	if len(l.serial) == 0 {
		// NUL-terminated empty string; the vendor rejects it cleanly.
		l.serial = []byte{0}
	}
	return uintptr(unsafe.Pointer(&l.serial[0]))
}

// callErr invokes an error-coded function on the open serial.
func (l *dllLibrary) callErr(name string, args ...uintptr) error {
	r1, _, _ := l.proc(name).Call(append([]uintptr{l.serialArg()}, args...)...)
	return errorCheck(int(int32(r1)))
}

// callOK invokes a boolean-success function on the open serial.
func (l *dllLibrary) callOK(name string, args ...uintptr) error {
	r1, _, _ := l.proc(name).Call(append([]uintptr{l.serialArg()}, args...)...)
	return successCheck(r1 != 0)
}

// call invokes a plain function on the open serial and returns its
// raw result.
func (l *dllLibrary) call(name string, args ...uintptr) uintptr {
	r1, _, _ := l.proc(name).Call(append([]uintptr{l.serialArg()}, args...)...)
	return r1
}

func (l *dllLibrary) BuildDeviceList() error {
	r1, _, _ := l.dll.NewProc("TLI_BuildDeviceList").Call()
	return errorCheck(int(int32(r1)))
}

func (l *dllLibrary) DeviceListSize() int {
	r1, _, _ := l.dll.NewProc("TLI_GetDeviceListSize").Call()
	return int(int32(r1))
}

func (l *dllLibrary) DeviceListByType(hwTypeID int, buf []byte) error {
	r1, _, _ := l.dll.NewProc("TLI_GetDeviceListByTypeExt").Call(
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(uint32(len(buf))),
		uintptr(hwTypeID),
	)
	return errorCheck(int(int32(r1)))
}

func (l *dllLibrary) Open(serial string) error {
	l.serial = append([]byte(serial), 0)
	if err := l.callErr("Open"); err != nil {
		l.serial = nil
		return err
	}
	return nil
}

func (l *dllLibrary) Close() {
	l.call("Close")
	l.serial = nil
}

func (l *dllLibrary) StartPolling(interval time.Duration) error {
	return l.callOK("StartPolling", uintptr(interval/time.Millisecond))
}

func (l *dllLibrary) StopPolling() {
	l.call("StopPolling")
}

func (l *dllLibrary) PollingDuration() time.Duration {
	ms := int(int32(l.call("PollingDuration")))
	return time.Duration(ms) * time.Millisecond
}

func (l *dllLibrary) LoadSettings() error {
	return l.callOK("LoadSettings")
}

func (l *dllLibrary) RequestStatus() error {
	return l.callErr("RequestStatus")
}

func (l *dllLibrary) RequestStatusBits() error {
	return l.callErr("RequestStatusBits")
}

func (l *dllLibrary) StatusBits() (uint32, error) {
	return uint32(l.call("GetStatusBits")), nil
}

func (l *dllLibrary) Identify() {
	l.call("Identify")
}

func (l *dllLibrary) NumberPositions() int {
	return int(int32(l.call("GetNumberPositions")))
}

func (l *dllLibrary) Position() int {
	return int(int32(l.call("GetPosition")))
}

func (l *dllLibrary) MoveToPosition(position int) error {
	return l.callErr("MoveToPosition", uintptr(position))
}

func (l *dllLibrary) MoveRelative(displacement int) error {
	return l.callErr("MoveRelative", uintptr(displacement))
}

func (l *dllLibrary) MoveAtVelocity(direction TravelDirection) error {
	return l.callErr("MoveAtVelocity", uintptr(direction))
}

func (l *dllLibrary) Home() error {
	return l.callErr("Home")
}

func (l *dllLibrary) CanHome() bool {
	return l.call("CanHome") != 0
}

func (l *dllLibrary) CanMoveWithoutHomingFirst() bool {
	return l.call("CanMoveWithoutHomingFirst") != 0
}

func (l *dllLibrary) StopImmediate() error {
	return l.callErr("StopImmediate")
}

func (l *dllLibrary) StopProfiled() error {
	return l.callErr("StopProfiled")
}

func (l *dllLibrary) EnableChannel() error {
	return l.callErr("EnableChannel")
}

func (l *dllLibrary) DisableChannel() error {
	return l.callErr("DisableChannel")
}

func (l *dllLibrary) VelParams() (int, int, error) {
	var acceleration, maxVelocity int32
	err := l.callErr("GetVelParams",
		uintptr(unsafe.Pointer(&acceleration)),
		uintptr(unsafe.Pointer(&maxVelocity)),
	)
	return int(acceleration), int(maxVelocity), err
}

func (l *dllLibrary) SetVelParams(acceleration, maxVelocity int) error {
	return l.callErr("SetVelParams", uintptr(acceleration), uintptr(maxVelocity))
}

func (l *dllLibrary) JogMode() (JogMode, StopMode, error) {
	var jog, stop int16
	err := l.callErr("GetJogMode",
		uintptr(unsafe.Pointer(&jog)),
		uintptr(unsafe.Pointer(&stop)),
	)
	return JogMode(jog), StopMode(stop), err
}

func (l *dllLibrary) SetJogMode(jog JogMode, stop StopMode) error {
	return l.callErr("SetJogMode", uintptr(jog), uintptr(stop))
}

func (l *dllLibrary) SetRotationModes(mode MovementMode, direction MovementDirection) error {
	return l.callErr("SetRotationModes", uintptr(mode), uintptr(direction))
}

func (l *dllLibrary) ResetRotationModes() error {
	return l.callErr("ResetRotationModes")
}

func (l *dllLibrary) TransitTime() (int, error) {
	return int(int32(l.call("GetTransitTime"))), nil
}

func (l *dllLibrary) SetTransitTime(ms int) error {
	return l.callErr("SetTransitTime", uintptr(ms))
}

func (l *dllLibrary) HardwareInfo() (HardwareInfo, error) {
	var (
		model             [64]byte
		hwType            uint16
		numChannels       uint16
		notes             [64]byte
		firmware          uint32
		hardwareVersion   uint16
		modificationState uint16
	)
	err := l.callErr("GetHardwareInfo",
		uintptr(unsafe.Pointer(&model[0])), 64,
		uintptr(unsafe.Pointer(&hwType)),
		uintptr(unsafe.Pointer(&numChannels)),
		uintptr(unsafe.Pointer(&notes[0])), 64,
		uintptr(unsafe.Pointer(&firmware)),
		uintptr(unsafe.Pointer(&hardwareVersion)),
		uintptr(unsafe.Pointer(&modificationState)),
	)
	if err != nil {
		return HardwareInfo{}, err
	}
	return HardwareInfo{
		Model:             windows.ByteSliceToString(model[:]),
		Type:              int(hwType),
		NumChannels:       int(numChannels),
		Notes:             windows.ByteSliceToString(notes[:]),
		Firmware:          FirmwareVersion(firmware),
		HardwareVersion:   int(hardwareVersion),
		ModificationState: int(modificationState),
	}, nil
}

func (l *dllLibrary) DeviceUnitFromReal(real float64, unit UnitType) (int, error) {
	var device int32
	// Documented as boolean success, but the DLL returns an error code.
	err := l.callErr("GetDeviceUnitFromRealValue",
		uintptr(math.Float64bits(real)),
		uintptr(unsafe.Pointer(&device)),
		uintptr(unit),
	)
	return int(device), err
}

func (l *dllLibrary) RealFromDeviceUnit(device int, unit UnitType) (float64, error) {
	var real float64
	err := l.callErr("GetRealValueFromDeviceUnit",
		uintptr(device),
		uintptr(unsafe.Pointer(&real)),
		uintptr(unit),
	)
	return real, err
}

func (l *dllLibrary) EnableSimulation() {
	l.dll.NewProc("TLI_InitializeSimulations").Call()
}

func (l *dllLibrary) DisableSimulation() {
	l.dll.NewProc("TLI_UninitializeSimulations").Call()
}

var _ Library = (*dllLibrary)(nil)
