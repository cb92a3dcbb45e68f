package ptz

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/teslashibe/go-jetbot/internal/log"
)

// Backend positions the two servos. Angles arrive already clamped.
type Backend interface {
	SetAngle(ctx context.Context, servo string, deg float64) error
	Close() error
}

// MockBackend remembers the last angle per servo.
type MockBackend struct {
	mu     sync.Mutex
	angles map[string]float64
	calls  int
}

// NewMockBackend creates an empty mock.
func NewMockBackend() *MockBackend {
	return &MockBackend{angles: make(map[string]float64)}
}

// SetAngle records deg.
func (m *MockBackend) SetAngle(_ context.Context, servo string, deg float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.angles[servo] = deg
	m.calls++
	return nil
}

// Angle returns the recorded angle.
func (m *MockBackend) Angle(servo string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.angles[servo]
}

// Calls returns how many times SetAngle ran.
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op.
func (m *MockBackend) Close() error { return nil }

type opener struct {
	name string
	open func(Config) (Backend, error)
}

func probes(cfg Config) ([]opener, error) {
	all := map[string]opener{
		BackendPCA9685: {BackendPCA9685, func(c Config) (Backend, error) { return NewPCA9685Backend(c) }},
		BackendFeetech: {BackendFeetech, func(c Config) (Backend, error) { return NewFeetechBackend(c) }},
		BackendMock:    {BackendMock, func(Config) (Backend, error) { return NewMockBackend(), nil }},
	}
	switch cfg.Backend {
	case BackendAuto, "":
		return []opener{all[BackendPCA9685], all[BackendFeetech], all[BackendMock]}, nil
	case BackendPCA9685, BackendFeetech, BackendMock:
		return []opener{all[cfg.Backend]}, nil
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Backend, ErrUnknownBackend)
	}
}

// Resolve opens the first backend that answers and returns its name.
func Resolve(cfg Config) (Backend, string, error) {
	order, err := probes(cfg)
	if err != nil {
		return nil, "", err
	}
	logger := log.Component("ptz")
	errs := []error{ErrNoBackend}
	for _, o := range order {
		b, err := o.open(cfg)
		if err != nil {
			logger.Debug("servo backend unavailable", "backend", o.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", o.name, err))
			continue
		}
		logger.Info("servo backend ready", "backend", o.name)
		return b, o.name, nil
	}
	return nil, "", errors.Join(errs...)
}
