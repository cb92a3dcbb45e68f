// Package steering implements the PID controller that turns a lateral lane
// error into a steering correction.
package steering

import (
	"time"

	"github.com/teslashibe/go-jetbot/internal/timeutil"
)

// State is a read-only copy of the controller's memory.
type State struct {
	Integral      float64
	PreviousError float64
	LastUpdate    time.Time
}

// Terms breaks the most recent output into its components.
type Terms struct {
	P, I, D float64
}

// PID is a textbook PID controller with an explicit time base.
// It is not safe for concurrent use; one instance belongs to one loop.
type PID struct {
	cfg   Config
	clock timeutil.Clock
	state State
	terms Terms
}

// New creates a controller and stamps its time base with clock.Now().
// A nil clock uses the wall clock.
func New(cfg Config, clock timeutil.Clock) *PID {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	p := &PID{cfg: cfg, clock: clock}
	p.state.LastUpdate = clock.Now()
	return p
}

// Update feeds a measurement taken now and returns the control output.
func (p *PID) Update(measurement float64) float64 {
	return p.UpdateAt(measurement, p.clock.Now())
}

// UpdateAt feeds a measurement taken at now.
// If now is not after the previous update the call returns 0 and leaves the
// controller untouched.
func (p *PID) UpdateAt(measurement float64, now time.Time) float64 {
	dt := now.Sub(p.state.LastUpdate).Seconds()
	if dt <= 0 {
		return 0
	}

	err := p.cfg.Setpoint - measurement
	p.state.Integral += err * dt
	derivative := (err - p.state.PreviousError) / dt

	p.terms = Terms{
		P: p.cfg.Kp * err,
		I: p.cfg.Ki * p.state.Integral,
		D: p.cfg.Kd * derivative,
	}

	p.state.PreviousError = err
	p.state.LastUpdate = now

	return p.terms.P + p.terms.I + p.terms.D
}

// Reset clears the integral and previous error and restarts the time base now.
func (p *PID) Reset() {
	p.ResetAt(p.clock.Now())
}

// ResetAt clears the integral and previous error and restarts the time base at t.
func (p *PID) ResetAt(t time.Time) {
	p.state = State{LastUpdate: t}
	p.terms = Terms{}
}

// Snapshot returns a copy of the controller state.
func (p *PID) Snapshot() State {
	return p.state
}

// LastTerms returns the P, I and D contributions of the last update.
func (p *PID) LastTerms() Terms {
	return p.terms
}

// Config returns the active gains.
func (p *PID) Config() Config {
	return p.cfg
}

// SetConfig swaps the gains. Accumulated state is kept.
func (p *PID) SetConfig(cfg Config) {
	p.cfg = cfg
}

// Clamp limits value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
