package kinesis

import (
	"fmt"

	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
)

// KCubeDCServo drives a KDC101 K-Cube controller through the
// KCube.DCServo library (CC function prefix).
//
// Unlike the cage rotator, positions and velocity profile values are
// exposed in raw device units; the stage attached to the controller
// determines their physical meaning.
type KCubeDCServo struct {
	*Device

	// Position is the stage position in device units.
	Position *parameter.Parameter

	// Velocity is the profile velocity in device units.
	Velocity *parameter.Parameter

	// Acceleration is the profile acceleration in device units.
	Acceleration *parameter.Parameter

	// JogModeParam and StopModeParam hold the jog configuration as mode
	// names ("Continuous"/"SingleStep", "Immediate"/"Profiled").
	JogModeParam  *parameter.Parameter
	StopModeParam *parameter.Parameter
}

// NewKCubeDCServoDLL connects to a K-Cube controller through the vendor
// DLL. An empty dllDir uses the vendor install location.
func NewKCubeDCServoDLL(name, dllDir string, cfg Config) (*KCubeDCServo, error) {
	lib, err := NewDLL(DLLConfig{Dir: dllDir, Lib: "KCube.DCServo", Prefix: "CC"})
	if err != nil {
		return nil, err
	}
	return NewKCubeDCServo(name, lib, cfg)
}

// NewKCubeDCServo connects to a K-Cube DC servo controller.
func NewKCubeDCServo(name string, lib Library, cfg Config) (*KCubeDCServo, error) {
	d, err := newDevice(name, lib, HardwareTypeKCubeDCServo, cfg)
	if err != nil {
		return nil, err
	}
	k := &KCubeDCServo{Device: d}

	k.Position = parameter.New(parameter.Spec{
		Name:  "position",
		Label: "Position",
		Vals:  parameter.AnyInt(),
		Get:   func() (any, error) { return k.rawPosition() },
		Set:   func(v any) error { return k.moveToRaw(toDeviceUnits(v), false) },
	})
	k.params.MustAdd(k.Position)

	k.Velocity = parameter.New(parameter.Spec{
		Name:  "velocity",
		Label: "Velocity",
		Vals:  parameter.AnyInt(),
		Get: func() (any, error) {
			_, maxVelocity, err := k.lib.VelParams()
			return maxVelocity, err
		},
		Set: func(v any) error {
			acceleration, _, err := k.lib.VelParams()
			if err != nil {
				return err
			}
			return k.lib.SetVelParams(acceleration, toDeviceUnits(v))
		},
	})
	k.params.MustAdd(k.Velocity)

	k.Acceleration = parameter.New(parameter.Spec{
		Name:  "acceleration",
		Label: "Acceleration",
		Vals:  parameter.AnyInt(),
		Get: func() (any, error) {
			acceleration, _, err := k.lib.VelParams()
			return acceleration, err
		},
		Set: func(v any) error {
			_, maxVelocity, err := k.lib.VelParams()
			if err != nil {
				return err
			}
			return k.lib.SetVelParams(toDeviceUnits(v), maxVelocity)
		},
	})
	k.params.MustAdd(k.Acceleration)

	// Jog and stop mode live in one vendor call; each parameter
	// rewrites its half and carries the other over unchanged.
	k.JogModeParam = parameter.New(parameter.Spec{
		Name:  "jog_mode",
		Label: "Jog mode",
		Vals:  parameter.Enum("Continuous", "SingleStep"),
		Get: func() (any, error) {
			jog, _, err := k.lib.JogMode()
			return jog.String(), err
		},
		Set: func(v any) error {
			jog, err := ParseJogMode(v.(string))
			if err != nil {
				return err
			}
			_, stop, err := k.lib.JogMode()
			if err != nil {
				return err
			}
			return k.lib.SetJogMode(jog, stop)
		},
	})
	k.params.MustAdd(k.JogModeParam)

	k.StopModeParam = parameter.New(parameter.Spec{
		Name:  "stop_mode",
		Label: "Stop mode",
		Vals:  parameter.Enum("Immediate", "Profiled"),
		Get: func() (any, error) {
			_, stop, err := k.lib.JogMode()
			return stop.String(), err
		},
		Set: func(v any) error {
			stop, err := ParseStopMode(v.(string))
			if err != nil {
				return err
			}
			jog, _, err := k.lib.JogMode()
			if err != nil {
				return err
			}
			return k.lib.SetJogMode(jog, stop)
		},
	})
	k.params.MustAdd(k.StopModeParam)

	return k, nil
}

// MoveTo moves to a position in device units. With block set, it
// returns only once the stage has stopped moving.
func (k *KCubeDCServo) MoveTo(position int, block bool) error {
	if err := k.moveToRaw(position, block); err != nil {
		return err
	}
	k.Position.Invalidate()
	return nil
}

// MoveRelative moves by a signed displacement in device units.
func (k *KCubeDCServo) MoveRelative(displacement int) error {
	if !k.Connected() {
		return ErrNotConnected
	}
	if err := k.call("MoveRelative", func() error { return k.lib.MoveRelative(displacement) }); err != nil {
		return err
	}
	k.Position.Invalidate()
	return nil
}

// MoveAtVelocity starts a continuous move in the given direction.
func (k *KCubeDCServo) MoveAtVelocity(direction TravelDirection) error {
	if !k.Connected() {
		return ErrNotConnected
	}
	return k.call("MoveAtVelocity", func() error { return k.lib.MoveAtVelocity(direction) })
}

// Stop halts the current move, immediately or along the velocity profile.
func (k *KCubeDCServo) Stop(mode StopMode) error {
	return stopDevice(k.Device, mode)
}

// EnableChannel applies motor power so the stage holds its position.
func (k *KCubeDCServo) EnableChannel() error {
	if !k.Connected() {
		return ErrNotConnected
	}
	return k.call("EnableChannel", k.lib.EnableChannel)
}

// DisableChannel removes motor power so the stage can be moved by hand.
func (k *KCubeDCServo) DisableChannel() error {
	if !k.Connected() {
		return ErrNotConnected
	}
	return k.call("DisableChannel", k.lib.DisableChannel)
}

// ParseJogMode converts a jog mode name to its enum value.
func ParseJogMode(name string) (JogMode, error) {
	switch name {
	case "Continuous":
		return JogModeContinuous, nil
	case "SingleStep":
		return JogModeSingleStep, nil
	}
	return JogModeUndefined, fmt.Errorf("unknown jog mode %q", name)
}

// ParseStopMode converts a stop mode name to its enum value.
func ParseStopMode(name string) (StopMode, error) {
	switch name {
	case "Immediate":
		return StopModeImmediate, nil
	case "Profiled":
		return StopModeProfiled, nil
	}
	return StopModeUndefined, fmt.Errorf("unknown stop mode %q", name)
}

// toDeviceUnits narrows a validated integer parameter value to int.
func toDeviceUnits(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

var _ Mover = (*KCubeDCServo)(nil)
