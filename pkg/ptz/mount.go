// Package ptz points the camera. The JetBot's optional pan/tilt mount is
// either two hobby servos on the motor PCA9685 or a pair of Feetech bus
// servos; Mount hides which and keeps every move inside the configured
// travel limits.
package ptz

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-jetbot/internal/log"
)

// Position is the pan and tilt of the mount in degrees.
type Position struct {
	Pan  float64 `json:"pan"`
	Tilt float64 `json:"tilt"`
}

// Mount is a clamped, thread-safe pan/tilt head.
type Mount struct {
	mu      sync.Mutex
	backend Backend
	name    string
	cfg     Config
	pos     Position
	logger  *slog.Logger
}

// NewMount wraps an opened backend. The position is unknown until the
// first move, so callers normally follow with Center.
func NewMount(b Backend, name string, cfg Config) *Mount {
	return &Mount{
		backend: b,
		name:    name,
		cfg:     cfg,
		pos:     Position{Pan: cfg.Center, Tilt: cfg.Center},
		logger:  log.Component("ptz"),
	}
}

// Open validates cfg and resolves a backend.
func Open(cfg Config) (*Mount, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b, name, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}
	return NewMount(b, name, cfg), nil
}

// Backend names the backend in use.
func (m *Mount) Backend() string { return m.name }

func (m *Mount) limits(servo string) (Limits, error) {
	switch servo {
	case Pan:
		return m.cfg.PanLimits, nil
	case Tilt:
		return m.cfg.TiltLimits, nil
	}
	return Limits{}, fmt.Errorf("%q: %w", servo, ErrUnknownServo)
}

// SetAngle moves servo to deg, clamped to its limits, and returns the
// angle actually commanded.
func (m *Mount) SetAngle(ctx context.Context, servo string, deg float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setLocked(ctx, servo, deg)
}

func (m *Mount) setLocked(ctx context.Context, servo string, deg float64) (float64, error) {
	lim, err := m.limits(servo)
	if err != nil {
		return 0, err
	}
	target := lim.Clamp(deg)
	if err := m.backend.SetAngle(ctx, servo, target); err != nil {
		return 0, err
	}
	if servo == Pan {
		m.pos.Pan = target
	} else {
		m.pos.Tilt = target
	}
	if target != deg {
		m.logger.Debug("servo angle clamped", "servo", servo, "requested", deg, "angle", target)
	}
	return target, nil
}

// Pan moves the pan servo.
func (m *Mount) Pan(ctx context.Context, deg float64) (float64, error) {
	return m.SetAngle(ctx, Pan, deg)
}

// Tilt moves the tilt servo.
func (m *Mount) Tilt(ctx context.Context, deg float64) (float64, error) {
	return m.SetAngle(ctx, Tilt, deg)
}

// Center points both servos at the configured centre.
func (m *Mount) Center(ctx context.Context) error {
	return m.Look(ctx, Position{Pan: m.cfg.Center, Tilt: m.cfg.Center})
}

// DrivePose centres pan and applies the lane-following tilt.
func (m *Mount) DrivePose(ctx context.Context) error {
	return m.Look(ctx, Position{Pan: m.cfg.Center, Tilt: m.cfg.DriveTilt})
}

// Look moves both servos.
func (m *Mount) Look(ctx context.Context, p Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.setLocked(ctx, Pan, p.Pan); err != nil {
		return err
	}
	_, err := m.setLocked(ctx, Tilt, p.Tilt)
	return err
}

// RelativeMove nudges both servos by the given deltas.
func (m *Mount) RelativeMove(ctx context.Context, dPan, dTilt float64) (Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.setLocked(ctx, Pan, m.pos.Pan+dPan); err != nil {
		return m.pos, err
	}
	_, err := m.setLocked(ctx, Tilt, m.pos.Tilt+dTilt)
	return m.pos, err
}

// Position returns the last commanded position.
func (m *Mount) Position() Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// Close releases the backend.
func (m *Mount) Close() error {
	return m.backend.Close()
}
