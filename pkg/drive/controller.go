package drive

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-jetbot/internal/log"
)

// Motor names accepted by SetMotor.
const (
	MotorLeft  = "left"
	MotorRight = "right"
)

// Controller owns a motor backend and gates it behind a running flag.
// While stopped, drive requests are ignored.
type Controller struct {
	mu      sync.Mutex
	backend Backend
	kind    Kind
	running bool
	wheels  Wheels
	logger  *slog.Logger
}

// NewController wraps a resolved backend.
func NewController(backend Backend, kind Kind) *Controller {
	return &Controller{
		backend: backend,
		kind:    kind,
		logger:  log.Component("drive"),
	}
}

// Open resolves a backend from cfg and wraps it.
func Open(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b, kind, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}
	return NewController(b, kind), nil
}

// Kind returns the backend type in use.
func (c *Controller) Kind() Kind {
	return c.kind
}

// Start enables motion.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
}

// Stop halts the motors and disables motion until the next Start.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return c.haltLocked()
}

// IsRunning reports whether drive requests are honoured.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Move mixes cmd into wheel speeds and applies them.
// While stopped it returns zero wheels and does nothing.
func (c *Controller) Move(cmd Command) (Wheels, error) {
	return c.apply(Mix(cmd))
}

// Forward drives both wheels at speed.
func (c *Controller) Forward(speed float64) error {
	_, err := c.applyChecked(speed, speed)
	return err
}

// Backward drives both wheels at -speed.
func (c *Controller) Backward(speed float64) error {
	_, err := c.applyChecked(-speed, -speed)
	return err
}

// TurnLeft spins in place to the left.
func (c *Controller) TurnLeft(speed float64) error {
	_, err := c.applyChecked(-speed, speed)
	return err
}

// TurnRight spins in place to the right.
func (c *Controller) TurnRight(speed float64) error {
	_, err := c.applyChecked(speed, -speed)
	return err
}

// SetMotor sets one wheel, keeping the other at its last speed.
func (c *Controller) SetMotor(name string, speed float64) error {
	c.mu.Lock()
	w := c.wheels
	c.mu.Unlock()

	switch name {
	case MotorLeft:
		w.Left = speed
	case MotorRight:
		w.Right = speed
	default:
		return fmt.Errorf("%q: %w", name, ErrUnknownMotor)
	}
	_, err := c.applyChecked(w.Left, w.Right)
	return err
}

// Halt stops the motors without changing the running flag.
func (c *Controller) Halt() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.haltLocked()
}

// Wheels returns the last applied wheel speeds.
func (c *Controller) Wheels() Wheels {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wheels
}

// Close stops the motors and releases the backend.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	haltErr := c.haltLocked()
	if err := c.backend.Close(); err != nil {
		return err
	}
	return haltErr
}

func (c *Controller) applyChecked(left, right float64) (Wheels, error) {
	if !inRange(left) || !inRange(right) {
		return Wheels{}, fmt.Errorf("left=%v right=%v: %w", left, right, ErrSpeedRange)
	}
	return c.apply(Wheels{Left: left, Right: right})
}

func (c *Controller) apply(w Wheels) (Wheels, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return Wheels{}, nil
	}
	if err := c.backend.SetSpeeds(w.Left, w.Right); err != nil {
		return Wheels{}, fmt.Errorf("set speeds: %w", err)
	}
	c.wheels = w
	c.logger.Debug("wheels", "left", w.Left, "right", w.Right)
	return w, nil
}

func (c *Controller) haltLocked() error {
	c.wheels = Wheels{}
	if err := c.backend.Stop(); err != nil {
		return fmt.Errorf("stop motors: %w", err)
	}
	return nil
}
