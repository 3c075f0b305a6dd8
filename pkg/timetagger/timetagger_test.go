package timetagger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qutech-lab/labdrivers-go/pkg/parameter"
)

func TestRegistryKindNaming(t *testing.T) {
	r := NewRegistry()

	factory := func(name string, tagger TaggerAPI) (any, error) { return nil, nil }

	require.NoError(t, r.Register("CounterMeasurement", factory))
	require.NoError(t, r.Register("DelayedVirtualChannel", factory))

	err := r.Register("Histogram", factory)
	require.ErrorIs(t, err, ErrInvalidKindName)
	assert.Contains(t, err.Error(), "Histogram")

	assert.Equal(t, []string{"CounterMeasurement", "DelayedVirtualChannel"}, r.Kinds())
}

func TestRegistryDuplicateKeepsFirst(t *testing.T) {
	r := NewRegistry()

	first := func(name string, tagger TaggerAPI) (any, error) { return "first", nil }
	second := func(name string, tagger TaggerAPI) (any, error) { return "second", nil }

	require.NoError(t, r.Register("CounterMeasurement", first))
	require.NoError(t, r.Register("CounterMeasurement", second))

	factory, ok := r.Lookup("CounterMeasurement")
	require.True(t, ok)
	v, err := factory("c", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	assert.Len(t, r.Kinds(), 1)
}

func TestMustRegisterPanicsOnBadName(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() {
		r.MustRegister("Counter", func(name string, tagger TaggerAPI) (any, error) {
			return nil, nil
		})
	})
}

// counterMeasurement builds a measurement whose SDK object depends on
// two configuration parameters.
func counterMeasurement(t *testing.T) (*Measurement, *parameter.Parameter, *parameter.Parameter, *int) {
	t.Helper()

	tagger := &SimTagger{Serial: "1234567ABC", Model: "Time Tagger Ultra"}
	computed := 0

	store := map[string]any{}
	makeStored := func(name string, vals parameter.Validator) parameter.Spec {
		return parameter.Spec{
			Name: name,
			Vals: vals,
			Get:  func() (any, error) { return store[name], nil },
			Set:  func(v any) error { store[name] = v; return nil },
		}
	}

	m := NewMeasurement("counter", tagger, func() (MeasurementAPI, error) {
		computed++
		return &SimMeasurement{}, nil
	})
	binwidth := m.ConfigParameter(makeStored("binwidth", parameter.Ints(1, 1_000_000_000)))
	nValues := m.ConfigParameter(makeStored("n_values", parameter.Ints(1, 1_000_000)))
	m.RequireParameters(binwidth, nValues)

	return m, binwidth, nValues, &computed
}

func TestHandleRequiresInitializedParameters(t *testing.T) {
	m, binwidth, _, computed := counterMeasurement(t)

	err := m.Start()
	require.ErrorIs(t, err, ErrParametersNotInitialized)
	assert.Contains(t, err.Error(), "binwidth,n_values", "all unmet prerequisites are named")
	assert.Zero(t, *computed)

	require.NoError(t, binwidth.Set(1000))
	err = m.Start()
	require.ErrorIs(t, err, ErrParametersNotInitialized)
	assert.Contains(t, err.Error(), "n_values")
	assert.NotContains(t, err.Error(), "binwidth")
}

func TestHandleComputesOnceAndInvalidates(t *testing.T) {
	m, binwidth, nValues, computed := counterMeasurement(t)

	require.NoError(t, binwidth.Set(1000))
	require.NoError(t, nValues.Set(100))

	require.NoError(t, m.Start())
	require.NoError(t, m.Stop())
	assert.Equal(t, 1, *computed, "handle is computed lazily, once")

	// Changing configuration drops the cached SDK object.
	require.NoError(t, binwidth.Set(2000))
	assert.False(t, m.handle.Valid())

	require.NoError(t, m.Start())
	assert.Equal(t, 2, *computed)
}

func TestMeasurementControl(t *testing.T) {
	sim := &SimMeasurement{}
	tagger := &SimTagger{}
	m := NewMeasurement("counter", tagger, func() (MeasurementAPI, error) {
		return sim, nil
	})

	require.NoError(t, m.Start())
	running, err := m.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, m.Stop())
	running, err = m.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, m.Clear())
	assert.Equal(t, 1, sim.Clears())

	assert.Equal(t, int64(-1), NoTimeout)
	require.NoError(t, m.WaitUntilFinished(NoTimeout))
}

func TestCaptureDurationNeverServesStaleValues(t *testing.T) {
	sim := &SimMeasurement{}
	m := NewMeasurement("counter", &SimTagger{}, func() (MeasurementAPI, error) {
		return sim, nil
	})

	require.NoError(t, m.StartFor(100, true))
	v, err := m.CaptureDuration.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(100), v)

	require.NoError(t, m.StartFor(150, false))
	v, err = m.CaptureDuration.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(250), v, "every read queries the SDK object")

	assert.False(t, m.CaptureDuration.Settable())
}

func TestVirtualChannelAccessors(t *testing.T) {
	single := NewVirtualChannel("delayed", &SimTagger{}, func() (VirtualChannelAPI, error) {
		return &SimSingleChannel{Ch: 5}, nil
	})

	ch, err := single.Channel()
	require.NoError(t, err)
	assert.Equal(t, int32(5), ch)

	_, err = single.Channels()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "try Channel()")

	multi := NewVirtualChannel("coincidences", &SimTagger{}, func() (VirtualChannelAPI, error) {
		return &SimMultiChannel{Chs: []int32{7, 8}}, nil
	})

	chs, err := multi.Channels()
	require.NoError(t, err)
	assert.Equal(t, []int32{7, 8}, chs)

	_, err = multi.Channel()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "try Channels()")
}

func TestSynchronizedMeasurements(t *testing.T) {
	parent := &SimTagger{Serial: "1234567ABC"}
	group := NewSynchronizedMeasurements("sync", NewSimSynchronized(parent))

	simA, simB := &SimMeasurement{}, &SimMeasurement{}
	a := NewMeasurement("a", group.Tagger(), func() (MeasurementAPI, error) { return simA, nil })
	b := NewMeasurement("b", group.Tagger(), func() (MeasurementAPI, error) { return simB, nil })

	require.NoError(t, group.Register(a))
	require.NoError(t, group.Register(b))

	require.NoError(t, group.StartFor(50, true))
	for _, sim := range []*SimMeasurement{simA, simB} {
		captured, err := sim.CaptureDuration()
		require.NoError(t, err)
		assert.Equal(t, int64(50), captured)
	}

	require.NoError(t, group.Start())
	assert.True(t, group.IsRunning())
	require.NoError(t, group.Stop())
	assert.False(t, group.IsRunning())

	require.NoError(t, group.Unregister(b))
	assert.ErrorIs(t, group.Unregister(b), ErrNotRegistered)
}

func TestModuleConfiguration(t *testing.T) {
	tagger := &SimTagger{Serial: "1234567ABC", Model: "Time Tagger Ultra"}
	m := NewMeasurement("counter", tagger, func() (MeasurementAPI, error) {
		return &SimMeasurement{}, nil
	})

	config, err := m.Configuration()
	require.NoError(t, err)
	assert.Equal(t, "Time Tagger Ultra", config["model"])
	assert.Same(t, tagger, m.Tagger())
}
