package kinesis

import (
	"fmt"
	"strings"
)

// HardwareType identifies a device family by its vendor type id.
type HardwareType int

const (
	HardwareTypeKCubeDCServo  HardwareType = 27
	HardwareTypeFilterFlipper HardwareType = 37
	HardwareTypeCageRotator   HardwareType = 55
)

func (t HardwareType) String() string {
	switch t {
	case HardwareTypeKCubeDCServo:
		return "KCubeDCServo"
	case HardwareTypeFilterFlipper:
		return "FilterFlipper"
	case HardwareTypeCageRotator:
		return "CageRotator"
	}
	return fmt.Sprintf("HardwareType(%d)", int(t))
}

// MotorType identifies the motor technology of a stage.
type MotorType int

const (
	MotorTypeNone      MotorType = 0
	MotorTypeDCServo   MotorType = 1
	MotorTypeStepper   MotorType = 2
	MotorTypeBrushless MotorType = 3
	MotorTypeCustom    MotorType = 100
)

// UnitType selects the conversion formula between device units and real
// world units.
type UnitType int

const (
	UnitDistance     UnitType = 0
	UnitVelocity     UnitType = 1
	UnitAcceleration UnitType = 2
)

func (u UnitType) String() string {
	switch u {
	case UnitDistance:
		return "Distance"
	case UnitVelocity:
		return "Velocity"
	case UnitAcceleration:
		return "Acceleration"
	}
	return fmt.Sprintf("UnitType(%d)", int(u))
}

// valid reports whether u is one of the defined unit kinds.
func (u UnitType) valid() bool {
	return u == UnitDistance || u == UnitVelocity || u == UnitAcceleration
}

// JogMode selects between continuous jogging and single steps.
type JogMode int

const (
	JogModeUndefined  JogMode = 0
	JogModeContinuous JogMode = 1
	JogModeSingleStep JogMode = 2
)

func (m JogMode) String() string {
	switch m {
	case JogModeContinuous:
		return "Continuous"
	case JogModeSingleStep:
		return "SingleStep"
	}
	return "Undefined"
}

// StopMode selects how a move is halted.
type StopMode int

const (
	StopModeUndefined StopMode = 0
	StopModeImmediate StopMode = 1
	StopModeProfiled  StopMode = 2
)

func (m StopMode) String() string {
	switch m {
	case StopModeImmediate:
		return "Immediate"
	case StopModeProfiled:
		return "Profiled"
	}
	return "Undefined"
}

// TravelDirection is the direction of a velocity move.
type TravelDirection int

const (
	TravelDirectionDisabled TravelDirection = 0
	TravelForwards          TravelDirection = 1
	TravelReverse           TravelDirection = 2
)

// MovementMode configures rotational behavior between two angles.
type MovementMode int

const (
	MovementLinearRange         MovementMode = 0
	MovementRotationalUnlimited MovementMode = 1
	MovementRotationalWrapping  MovementMode = 2
)

// MovementDirection selects the rotation direction between two angles.
type MovementDirection int

const (
	MovementQuickest MovementDirection = 0
	MovementForwards MovementDirection = 1
	MovementReverse  MovementDirection = 2
)

// FirmwareVersion renders the packed 4-byte firmware word as a dotted
// string, leading zero groups dropped.
func FirmwareVersion(fw uint32) string {
	parts := fmt.Sprintf("%02d.%02d.%02d.%02d",
		fw>>24&0xff, fw>>16&0xff, fw>>8&0xff, fw&0xff)
	return strings.TrimLeft(parts, "0.")
}
