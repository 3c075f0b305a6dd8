package kinesis

import (
	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
)

// Transit time limits in milliseconds.
const (
	MinTransitTime = 300
	MaxTransitTime = 2800
)

// FilterFlipper drives an MFF101 filter flipper through the
// FilterFlipper library (FF function prefix).
//
// The flipper has exactly two positions and no velocity profile; the
// only motion setting is the transit time between the positions.
type FilterFlipper struct {
	*Device

	// Position is the flipper position, 1 or 2.
	Position *parameter.Parameter

	// TransitTime is the flip duration in milliseconds, 300 to 2800.
	TransitTime *parameter.Parameter
}

// NewFilterFlipperDLL connects to a filter flipper through the vendor
// DLL. An empty dllDir uses the vendor install location.
func NewFilterFlipperDLL(name, dllDir string, cfg Config) (*FilterFlipper, error) {
	lib, err := NewDLL(DLLConfig{Dir: dllDir, Lib: "FilterFlipper", Prefix: "FF"})
	if err != nil {
		return nil, err
	}
	return NewFilterFlipper(name, lib, cfg)
}

// NewFilterFlipper connects to a filter flipper.
func NewFilterFlipper(name string, lib Library, cfg Config) (*FilterFlipper, error) {
	d, err := newDevice(name, lib, HardwareTypeFilterFlipper, cfg)
	if err != nil {
		return nil, err
	}
	f := &FilterFlipper{Device: d}

	f.Position = parameter.New(parameter.Spec{
		Name:  "position",
		Label: "Position",
		Vals:  parameter.Enum(1, 2),
		Get:   func() (any, error) { return f.rawPosition() },
		Set:   func(v any) error { return f.moveToRaw(toDeviceUnits(v), false) },
	})
	f.params.MustAdd(f.Position)

	f.TransitTime = parameter.New(parameter.Spec{
		Name:  "transit_time",
		Label: "Transit time",
		Unit:  "ms",
		Vals:  parameter.Ints(MinTransitTime, MaxTransitTime),
		Get: func() (any, error) {
			if !f.Connected() {
				return nil, ErrNotConnected
			}
			return f.lib.TransitTime()
		},
		Set: func(v any) error {
			if !f.Connected() {
				return ErrNotConnected
			}
			return f.call("SetTransitTime", func() error {
				return f.lib.SetTransitTime(toDeviceUnits(v))
			})
		},
	})
	f.params.MustAdd(f.TransitTime)

	return f, nil
}

// Flip moves the flipper to position 1 or 2. The flipper never reports
// itself as moving, so block waits are pointless; Flip returns as soon
// as the command is accepted.
func (f *FilterFlipper) Flip(position int) error {
	if err := f.Position.Validate(position); err != nil {
		return err
	}
	if err := f.moveToRaw(position, false); err != nil {
		return err
	}
	f.Position.Invalidate()
	return nil
}
