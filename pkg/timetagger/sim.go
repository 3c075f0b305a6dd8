package timetagger

import (
	"errors"
	"sync"
)

// ErrNotRegistered indicates an unregister of a measurement that is
// not part of the group.
var ErrNotRegistered = errors.New("measurement is not registered")

// SimTagger is an in-memory tagger connection for tests and offline use.
type SimTagger struct {
	Serial string
	Model  string
}

// Configuration reports the simulated device description.
func (t *SimTagger) Configuration() (map[string]any, error) {
	return map[string]any{
		"serial": t.Serial,
		"model":  t.Model,
	}, nil
}

// SimMeasurement is an in-memory measurement object. A StartFor run
// completes immediately, accumulating its duration as capture time.
type SimMeasurement struct {
	mu       sync.Mutex
	running  bool
	captured int64
	clears   int
}

func (m *SimMeasurement) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	return nil
}

func (m *SimMeasurement) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

func (m *SimMeasurement) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captured = 0
	m.clears++
	return nil
}

func (m *SimMeasurement) StartFor(duration int64, clear bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if clear {
		m.captured = 0
		m.clears++
	}
	m.captured += duration
	m.running = false
	return nil
}

func (m *SimMeasurement) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *SimMeasurement) WaitUntilFinished(timeout int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

func (m *SimMeasurement) CaptureDuration() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captured, nil
}

// Clears returns how many times accumulated data was discarded.
func (m *SimMeasurement) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// SimSingleChannel is a virtual channel object with one output channel.
type SimSingleChannel struct {
	Ch int32
}

func (*SimSingleChannel) virtualChannel() {}

func (c *SimSingleChannel) Channel() int32 { return c.Ch }

// SimMultiChannel is a virtual channel object with several output
// channels.
type SimMultiChannel struct {
	Chs []int32
}

func (*SimMultiChannel) virtualChannel() {}

func (c *SimMultiChannel) Channels() []int32 { return c.Chs }

// SimSynchronized is an in-memory measurement group.
type SimSynchronized struct {
	proxy TaggerAPI

	mu      sync.Mutex
	members []MeasurementAPI
	running bool
}

// NewSimSynchronized creates a group whose proxy handle wraps the
// given parent connection.
func NewSimSynchronized(parent TaggerAPI) *SimSynchronized {
	return &SimSynchronized{proxy: parent}
}

func (s *SimSynchronized) Tagger() TaggerAPI { return s.proxy }

func (s *SimSynchronized) RegisterMeasurement(m MeasurementAPI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, member := range s.members {
		if member == m {
			return nil
		}
	}
	s.members = append(s.members, m)
	return nil
}

func (s *SimSynchronized) UnregisterMeasurement(m MeasurementAPI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, member := range s.members {
		if member == m {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return nil
		}
	}
	return ErrNotRegistered
}

func (s *SimSynchronized) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, member := range s.members {
		if err := member.Start(); err != nil {
			return err
		}
	}
	s.running = true
	return nil
}

func (s *SimSynchronized) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, member := range s.members {
		if err := member.Stop(); err != nil {
			return err
		}
	}
	s.running = false
	return nil
}

func (s *SimSynchronized) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, member := range s.members {
		if err := member.Clear(); err != nil {
			return err
		}
	}
	return nil
}

func (s *SimSynchronized) StartFor(duration int64, clear bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, member := range s.members {
		if err := member.StartFor(duration, clear); err != nil {
			return err
		}
	}
	s.running = false
	return nil
}

func (s *SimSynchronized) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

var (
	_ TaggerAPI         = (*SimTagger)(nil)
	_ MeasurementAPI    = (*SimMeasurement)(nil)
	_ VirtualChannelAPI = (*SimSingleChannel)(nil)
	_ VirtualChannelAPI = (*SimMultiChannel)(nil)
	_ SynchronizedAPI   = (*SimSynchronized)(nil)
)
