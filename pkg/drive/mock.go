package drive

import "sync"

// MockBackend records every speed pair it is given.
type MockBackend struct {
	mu      sync.Mutex
	history []Wheels
	current Wheels
	closed  bool

	// Err, when set, is returned by SetSpeeds.
	Err error
}

// NewMockBackend creates an empty mock.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// SetSpeeds records the speeds.
func (m *MockBackend) SetSpeeds(left, right float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.current = Wheels{Left: left, Right: right}
	m.history = append(m.history, m.current)
	return nil
}

// Stop records a zero pair.
func (m *MockBackend) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Wheels{}
	m.history = append(m.history, m.current)
	return nil
}

// Close marks the mock closed.
func (m *MockBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Current returns the last speeds set.
func (m *MockBackend) Current() Wheels {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// History returns a copy of every recorded pair.
func (m *MockBackend) History() []Wheels {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Wheels, len(m.history))
	copy(out, m.history)
	return out
}

// Closed reports whether Close was called.
func (m *MockBackend) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
