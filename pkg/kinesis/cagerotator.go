package kinesis

import (
	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
)

// Mover is the capability set shared by motorized stages. Filter
// flippers do not satisfy it; their transit is fire-and-forget.
type Mover interface {
	IsMoving() (bool, error)
	Home() error
	Stop(mode StopMode) error
}

// CageRotator drives the K10CR1 cage rotator through the
// IntegratedStepperMotors library (ISC function prefix).
//
// Positions, velocities, and accelerations are exchanged with the
// device in device units and converted to degrees using the motor
// parameters loaded at connect time.
type CageRotator struct {
	*Device

	// Position is the angle in degrees, 0 to 360. Setting it starts a
	// move without blocking; use MoveTo to wait for completion.
	Position *parameter.Parameter

	// Velocity is the profile velocity in degrees per second.
	Velocity *parameter.Parameter

	// Acceleration is the profile acceleration in degrees per square
	// second.
	Acceleration *parameter.Parameter
}

// NewCageRotatorDLL connects to a cage rotator through the vendor DLL.
// An empty dllDir uses the vendor install location.
func NewCageRotatorDLL(name, dllDir string, cfg Config) (*CageRotator, error) {
	lib, err := NewDLL(DLLConfig{Dir: dllDir, Lib: "IntegratedStepperMotors", Prefix: "ISC"})
	if err != nil {
		return nil, err
	}
	return NewCageRotator(name, lib, cfg)
}

// NewCageRotator connects to a cage rotator.
func NewCageRotator(name string, lib Library, cfg Config) (*CageRotator, error) {
	d, err := newDevice(name, lib, HardwareTypeCageRotator, cfg)
	if err != nil {
		return nil, err
	}
	c := &CageRotator{Device: d}

	c.Position = parameter.New(parameter.Spec{
		Name:  "position",
		Label: "Position",
		Unit:  "°",
		Vals:  parameter.Numbers(0, 360),
		Get: func() (any, error) {
			raw, err := c.rawPosition()
			if err != nil {
				return nil, err
			}
			return c.realFromDeviceUnit(raw, UnitDistance)
		},
		Set: func(v any) error {
			raw, err := c.deviceUnitFromReal(toDegrees(v), UnitDistance)
			if err != nil {
				return err
			}
			return c.moveToRaw(raw, false)
		},
	})
	c.params.MustAdd(c.Position)

	c.Velocity = parameter.New(parameter.Spec{
		Name:  "velocity",
		Label: "Velocity",
		Unit:  "°/s",
		Vals:  parameter.AnyNumber(),
		Get: func() (any, error) {
			_, maxVelocity, err := c.lib.VelParams()
			if err != nil {
				return nil, err
			}
			return c.realFromDeviceUnit(maxVelocity, UnitVelocity)
		},
		Set: func(v any) error {
			raw, err := c.deviceUnitFromReal(toDegrees(v), UnitVelocity)
			if err != nil {
				return err
			}
			acceleration, _, err := c.lib.VelParams()
			if err != nil {
				return err
			}
			return c.lib.SetVelParams(acceleration, raw)
		},
	})
	c.params.MustAdd(c.Velocity)

	c.Acceleration = parameter.New(parameter.Spec{
		Name:  "acceleration",
		Label: "Acceleration",
		Unit:  "°/s²",
		Vals:  parameter.AnyNumber(),
		Get: func() (any, error) {
			acceleration, _, err := c.lib.VelParams()
			if err != nil {
				return nil, err
			}
			return c.realFromDeviceUnit(acceleration, UnitAcceleration)
		},
		Set: func(v any) error {
			raw, err := c.deviceUnitFromReal(toDegrees(v), UnitAcceleration)
			if err != nil {
				return err
			}
			_, maxVelocity, err := c.lib.VelParams()
			if err != nil {
				return err
			}
			return c.lib.SetVelParams(raw, maxVelocity)
		},
	})
	c.params.MustAdd(c.Acceleration)

	return c, nil
}

// MoveTo moves to an angle in degrees. With block set, it returns only
// once the stage has stopped moving.
func (c *CageRotator) MoveTo(degrees float64, block bool) error {
	if err := c.Position.Validate(degrees); err != nil {
		return err
	}
	raw, err := c.deviceUnitFromReal(degrees, UnitDistance)
	if err != nil {
		return err
	}
	if err := c.moveToRaw(raw, block); err != nil {
		return err
	}
	c.Position.Invalidate()
	return nil
}

// MoveRelative moves by a signed angle in degrees.
func (c *CageRotator) MoveRelative(degrees float64) error {
	raw, err := c.deviceUnitFromReal(degrees, UnitDistance)
	if err != nil {
		return err
	}
	if err := c.call("MoveRelative", func() error { return c.lib.MoveRelative(raw) }); err != nil {
		return err
	}
	c.Position.Invalidate()
	return nil
}

// MoveAtVelocity starts a continuous move in the given direction at the
// configured profile velocity.
func (c *CageRotator) MoveAtVelocity(direction TravelDirection) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	return c.call("MoveAtVelocity", func() error { return c.lib.MoveAtVelocity(direction) })
}

// Stop halts the current move, immediately or along the velocity profile.
func (c *CageRotator) Stop(mode StopMode) error {
	return stopDevice(c.Device, mode)
}

// SetRotationModes configures the rotation behavior between two angles.
func (c *CageRotator) SetRotationModes(mode MovementMode, direction MovementDirection) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	return c.call("SetRotationModes", func() error {
		return c.lib.SetRotationModes(mode, direction)
	})
}

// ResetRotationModes resets the rotation modes to their defaults.
func (c *CageRotator) ResetRotationModes() error {
	if !c.Connected() {
		return ErrNotConnected
	}
	return c.call("ResetRotationModes", c.lib.ResetRotationModes)
}

// EnableChannel applies motor power so the stage holds its position.
func (c *CageRotator) EnableChannel() error {
	if !c.Connected() {
		return ErrNotConnected
	}
	return c.call("EnableChannel", c.lib.EnableChannel)
}

// DisableChannel removes motor power so the stage can be moved by hand.
func (c *CageRotator) DisableChannel() error {
	if !c.Connected() {
		return ErrNotConnected
	}
	return c.call("DisableChannel", c.lib.DisableChannel)
}

// stopDevice issues the stop call matching the given mode.
func stopDevice(d *Device, mode StopMode) error {
	if !d.Connected() {
		return ErrNotConnected
	}
	switch mode {
	case StopModeImmediate:
		return d.call("StopImmediate", d.lib.StopImmediate)
	case StopModeProfiled:
		return d.call("StopProfiled", d.lib.StopProfiled)
	}
	return &Error{
		Code:    0x24,
		Name:    "TL_INVALID_OPERATION",
		Message: errorMessages["TL_INVALID_OPERATION"],
	}
}

// toDegrees widens a validated numeric parameter value to float64.
func toDegrees(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

var _ Mover = (*CageRotator)(nil)
