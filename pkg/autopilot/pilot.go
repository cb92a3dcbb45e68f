// Package autopilot runs the lane following loop: read a frame, find the
// lane, steer towards its centre, drive the wheels.
package autopilot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-jetbot/internal/log"
	"github.com/teslashibe/go-jetbot/internal/timeutil"
	"github.com/teslashibe/go-jetbot/pkg/drive"
	"github.com/teslashibe/go-jetbot/pkg/steering"
)

// Tuning replaces the live control parameters.
type Tuning struct {
	Gains       steering.Config `json:"gains"`
	BaseSpeed   float64         `json:"base_speed"`
	MaxSteering float64         `json:"max_steering"`
}

// Status is a point in time summary of the loop.
type Status struct {
	Running        bool      `json:"running"`
	Paused         bool      `json:"paused"`
	Searching      bool      `json:"searching"`
	Frames         uint64    `json:"frames"`
	LostFrames     uint64    `json:"lost_frames"`
	ActuatorErrors uint64    `json:"actuator_errors"`
	LastFrame      Frame     `json:"last_frame"`
	Tuning         Tuning    `json:"tuning"`
	StartedAt      time.Time `json:"started_at"`
}

// Pilot owns the steering controller and runs the per-frame pipeline.
// Step and Run must be called from a single goroutine; Tune, Pause and
// Status are safe from any goroutine.
type Pilot struct {
	cfg      Config
	initial  Config // read-only copy for validating Tune off the loop goroutine
	detector Detector
	pid      *steering.PID
	actuator Actuator
	clock    timeutil.Clock
	logger   *slog.Logger

	observers []Observer
	masks     []MaskObserver

	tuneCh  chan Tuning
	pauseCh chan bool

	// loop state
	searching   bool
	paused      bool
	lastFrameAt time.Time
	index       uint64
	lastWarn    time.Time
	mask        gocv.Mat

	mu     sync.RWMutex
	status Status
}

// Option configures a Pilot.
type Option func(*Pilot)

// WithClock injects a time source.
func WithClock(c timeutil.Clock) Option {
	return func(p *Pilot) { p.clock = c }
}

// WithObserver registers a telemetry observer.
func WithObserver(o Observer) Option {
	return func(p *Pilot) {
		p.observers = append(p.observers, o)
		if m, ok := o.(MaskObserver); ok {
			p.masks = append(p.masks, m)
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pilot) { p.logger = l }
}

// New builds a pilot. The detector and actuator are required.
func New(cfg Config, gains steering.Config, detector Detector, actuator Actuator, opts ...Option) (*Pilot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := gains.Validate(); err != nil {
		return nil, err
	}

	p := &Pilot{
		cfg:       cfg,
		initial:   cfg,
		detector:  detector,
		actuator:  actuator,
		clock:     timeutil.RealClock{},
		logger:    log.Component("autopilot"),
		tuneCh:    make(chan Tuning, 4),
		pauseCh:   make(chan bool, 4),
		searching: true,
		mask:      gocv.NewMat(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.pid = steering.New(gains, p.clock)
	p.status.Searching = true
	p.status.Tuning = p.tuning()
	return p, nil
}

// Close releases the mask buffer.
func (p *Pilot) Close() error {
	return p.mask.Close()
}

// Controller exposes the steering controller for inspection.
func (p *Pilot) Controller() *steering.PID {
	return p.pid
}

// Tune queues new control parameters; they apply before the next frame.
func (p *Pilot) Tune(t Tuning) error {
	if err := t.Gains.Validate(); err != nil {
		return err
	}
	cfg := p.initial
	cfg.BaseSpeed, cfg.MaxSteering = t.BaseSpeed, t.MaxSteering
	if err := cfg.Validate(); err != nil {
		return err
	}
	select {
	case p.tuneCh <- t:
	default:
		p.logger.Warn("tuning queue full, dropping update")
	}
	return nil
}

// Pause stops the wheels (true) or resumes driving (false) from the next
// frame on.
func (p *Pilot) Pause(paused bool) {
	select {
	case p.pauseCh <- paused:
	default:
		p.logger.Warn("pause queue full, dropping request", "paused", paused)
	}
}

// Status returns a snapshot of the loop.
func (p *Pilot) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *Pilot) tuning() Tuning {
	return Tuning{
		Gains:       p.pid.Config(),
		BaseSpeed:   p.cfg.BaseSpeed,
		MaxSteering: p.cfg.MaxSteering,
	}
}

// applyControl drains queued tuning and pause requests.
func (p *Pilot) applyControl() {
	for {
		select {
		case t := <-p.tuneCh:
			p.pid.SetConfig(t.Gains)
			p.cfg.BaseSpeed = t.BaseSpeed
			p.cfg.MaxSteering = t.MaxSteering
			p.logger.Info("tuning applied",
				"kp", t.Gains.Kp, "ki", t.Gains.Ki, "kd", t.Gains.Kd,
				"base_speed", t.BaseSpeed, "max_steering", t.MaxSteering)
			p.mu.Lock()
			p.status.Tuning = p.tuning()
			p.mu.Unlock()
		case paused := <-p.pauseCh:
			if paused != p.paused {
				p.paused = paused
				p.logger.Info("pause changed", "paused", paused)
			}
		default:
			return
		}
	}
}

func (p *Pilot) wantsMask() bool {
	for _, m := range p.masks {
		if m.WantsMask() {
			return true
		}
	}
	return false
}

// Step processes one frame captured at now and actuates the result.
// It returns an error only when the frame could not be processed; a frame
// without a lane yields a stop command and leaves the controller untouched.
func (p *Pilot) Step(frame gocv.Mat, now time.Time) (Frame, error) {
	p.applyControl()

	var maskDst *gocv.Mat
	if p.wantsMask() {
		maskDst = &p.mask
	}
	res, err := p.detector.Detect(frame, maskDst)
	if err != nil {
		return Frame{}, err
	}

	est := res.Estimate
	rec := Frame{
		Index:    p.index,
		Time:     now,
		Found:    est.Found,
		Source:   est.Source.String(),
		Segments: len(res.Segments),
		Left:     len(res.Left),
		Right:    len(res.Right),
		CenterX:  est.X,
		Paused:   p.paused,
	}

	switch {
	case p.paused:
		p.enterSearch("paused")
		rec.Command = drive.Stop
	case !est.Found:
		p.enterSearch("lane lost")
		rec.Command = drive.Stop
	default:
		if p.searching {
			// Restart the time base one frame back so the first update
			// after a gap integrates over a single frame interval.
			if !p.lastFrameAt.IsZero() {
				p.pid.ResetAt(p.lastFrameAt)
			}
			p.searching = false
			p.logger.Info("lane acquired", "frame", p.index, "source", rec.Source)
		}
		rec.Error = est.X - p.cfg.FrameCenterX
		rec.Steering, rec.Command = p.steer(rec.Error, now)
	}

	wheels, err := p.actuator.Move(rec.Command)
	if err != nil {
		rec.Fault = err.Error()
		p.warnActuator(now, err)
	}
	rec.Wheels = wheels
	rec.Latency = p.clock.Now().Sub(now)

	p.lastFrameAt = now
	p.index++
	p.record(rec)

	for _, o := range p.observers {
		o.ObserveFrame(rec)
	}
	if maskDst != nil {
		for _, m := range p.masks {
			if m.WantsMask() {
				m.ObserveMask(p.mask)
			}
		}
	}
	return rec, nil
}

// steer turns a pixel error into a drive command. The controller output is
// clamped to MaxSteering, the forward speed is reduced in proportion to the
// turn, and the correction is emitted with its sign flipped.
func (p *Pilot) steer(errPx float64, now time.Time) (float64, drive.Command) {
	raw := steering.Clamp(p.pid.UpdateAt(errPx, now), -p.cfg.MaxSteering, p.cfg.MaxSteering)
	return raw, drive.Command{
		Linear:   drive.Derate(p.cfg.BaseSpeed, raw),
		Steering: -raw,
	}
}

func (p *Pilot) enterSearch(reason string) {
	if !p.searching {
		p.logger.Info("searching for lane", "reason", reason, "frame", p.index)
	}
	p.searching = true
}

func (p *Pilot) warnActuator(now time.Time, err error) {
	p.mu.Lock()
	p.status.ActuatorErrors++
	p.mu.Unlock()
	if now.Sub(p.lastWarn) < p.cfg.WarnInterval {
		return
	}
	p.lastWarn = now
	p.logger.Warn("actuator failed", "error", err)
}

func (p *Pilot) record(rec Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Frames++
	if !rec.Found {
		p.status.LostFrames++
	}
	p.status.Paused = p.paused
	p.status.Searching = p.searching
	p.status.LastFrame = rec
}

// Run reads frames from src until ctx is cancelled or the source runs dry.
// The wheels are stopped on exit.
func (p *Pilot) Run(ctx context.Context, src FrameSource) error {
	frame := gocv.NewMat()
	defer frame.Close()

	p.pid.ResetAt(p.clock.Now())
	p.mu.Lock()
	p.status.Running = true
	p.status.StartedAt = p.clock.Now()
	p.mu.Unlock()

	defer func() {
		if _, err := p.actuator.Move(drive.Stop); err != nil {
			p.logger.Warn("failed to stop wheels", "error", err)
		}
		p.mu.Lock()
		p.status.Running = false
		p.mu.Unlock()
	}()

	p.logger.Info("autopilot started",
		"base_speed", p.cfg.BaseSpeed, "max_steering", p.cfg.MaxSteering,
		"frame_center_x", p.cfg.FrameCenterX)

	missed := 0
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("autopilot stopped", "frames", p.index)
			return nil
		default:
		}

		if !src.Read(&frame) || frame.Empty() {
			missed++
			if missed > p.cfg.MaxMissedFrames {
				p.logger.Warn("no frame from camera", "missed", missed)
				return ErrSourceExhausted
			}
			p.clock.Sleep(p.cfg.RetryDelay)
			continue
		}
		missed = 0

		if _, err := p.Step(frame, p.clock.Now()); err != nil {
			p.logger.Warn("frame skipped", "error", err)
		}
	}
}
