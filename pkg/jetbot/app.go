// Package jetbot wires the camera, lane detector, pilot and drive train
// into the lane-following application, together with its dashboard and
// run recorder.
package jetbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-jetbot/internal/config"
	"github.com/teslashibe/go-jetbot/internal/log"
	"github.com/teslashibe/go-jetbot/pkg/autopilot"
	"github.com/teslashibe/go-jetbot/pkg/camera"
	"github.com/teslashibe/go-jetbot/pkg/drive"
	"github.com/teslashibe/go-jetbot/pkg/lane"
	"github.com/teslashibe/go-jetbot/pkg/ptz"
	"github.com/teslashibe/go-jetbot/pkg/telemetry"
	"github.com/teslashibe/go-jetbot/pkg/web"
)

// Options are the command line switches that are not part of the file.
type Options struct {
	ConfigPath string // watched for live tuning when Watch is set
	Watch      bool
	Label      string // stored with the telemetry run
	NoMount    bool   // skip the pan/tilt head

	// BaseSpeed, when positive, overrides the file's base speed, including
	// on every reload while watching.
	BaseSpeed float64
}

// App owns every component of a drive session.
type App struct {
	file   *config.File
	opts   Options
	logger *slog.Logger

	camera   camera.Source
	settings *camera.Manager
	drive    *drive.Controller
	mount    *ptz.Mount
	pilot    *autopilot.Pilot
	stats    *telemetry.Stats
	store    *telemetry.Store
	web      *web.Server

	wg sync.WaitGroup
}

// New validates the configuration. Hardware is opened by Init.
func New(file *config.File, opts Options) (*App, error) {
	if file == nil {
		file = config.Default()
	}
	if opts.BaseSpeed > 0 {
		f := *file
		f.Autopilot.BaseSpeed = opts.BaseSpeed
		file = &f
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &App{file: file, opts: opts, logger: log.Component("jetbot")}, nil
}

// Init opens the hardware and builds the pipeline. On error everything
// opened so far is released.
func (a *App) Init() (err error) {
	defer func() {
		if err != nil {
			a.Shutdown()
		}
	}()

	if a.drive, err = drive.Open(a.file.Drive); err != nil {
		return fmt.Errorf("drive: %w", err)
	}
	a.logger.Info("drive ready", "backend", a.drive.Kind())

	if !a.opts.NoMount {
		if a.mount, err = ptz.Open(a.file.PTZ); err != nil {
			return fmt.Errorf("camera mount: %w", err)
		}
	}

	if a.camera, err = camera.Open(a.file.Camera); err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	a.settings = camera.NewManager(a.file.Camera)
	a.settings.LockSize()
	if c, ok := a.camera.(*camera.Capture); ok {
		a.settings.OnConfigChange = c.Apply
	}

	detector, err := lane.NewDetector(a.file.Lane)
	if err != nil {
		return fmt.Errorf("lane detector: %w", err)
	}

	a.stats = telemetry.NewStats(300)
	popts := []autopilot.Option{autopilot.WithObserver(a.stats)}

	if a.file.Telemetry.Enabled {
		if a.store, err = telemetry.Open(a.file.Telemetry); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		popts = append(popts, autopilot.WithObserver(a.store))
	}

	// The web server needs the pilot and the pilot needs the server as an
	// observer, so the server is attached through a forwarding observer.
	fwd := &forward{}
	if a.file.Web.Enabled {
		popts = append(popts, autopilot.WithObserver(fwd))
	}

	a.pilot, err = autopilot.New(a.file.Autopilot, a.file.Steering, detector, a.drive, popts...)
	if err != nil {
		return fmt.Errorf("autopilot: %w", err)
	}

	if a.file.Web.Enabled {
		wopts := []web.Option{
			web.WithStats(a.stats),
			web.WithCamera(a.settings),
			web.WithConfig(func() any { return a.file }),
		}
		if a.store != nil {
			wopts = append(wopts, web.WithRuns(a.store))
		}
		a.web = web.NewServer(a.file.Web, a.pilot, wopts...)
		fwd.set(a.web)
	}
	return nil
}

// Pilot exposes the running pilot.
func (a *App) Pilot() *autopilot.Pilot { return a.pilot }

// Stats exposes loop performance counters.
func (a *App) Stats() *telemetry.Stats { return a.stats }

// Store is the run recorder, nil when telemetry is disabled.
func (a *App) Store() *telemetry.Store { return a.store }

// Run drives until ctx is cancelled or the frame source runs dry.
// Replayed image files ending is a normal finish.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		a.wg.Wait()
	}()

	if a.web != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.web.Start(ctx); err != nil {
				a.logger.Error("dashboard stopped", "error", err)
			}
		}()
	}

	if a.opts.Watch && a.opts.ConfigPath != "" {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			err := config.Watch(ctx, a.opts.ConfigPath, config.DefaultDebounce, func(f *config.File) {
				if err := a.pilot.Tune(a.liveTuning(f)); err != nil {
					a.logger.Warn("tuning rejected", "error", err)
				}
			})
			if err != nil {
				a.logger.Warn("config watch stopped", "error", err)
			}
		}()
	}

	if a.mount != nil {
		if err := a.mount.DrivePose(ctx); err != nil {
			a.logger.Warn("camera mount", "error", err)
		}
	}

	if a.store != nil {
		if _, err := a.store.BeginRun(ctx, telemetry.RunMeta{
			Label:   a.opts.Label,
			Backend: a.drive.Kind().String(),
			Config:  a.file,
		}); err != nil {
			return err
		}
		defer func() {
			if _, err := a.store.EndRun(context.Background()); err != nil {
				a.logger.Warn("end run", "error", err)
			}
		}()
	}

	a.drive.Start()
	defer a.drive.Stop()

	a.logger.Info("lane following started", "base_speed", a.file.Autopilot.BaseSpeed)
	err := a.pilot.Run(ctx, a.camera)

	snap := a.stats.Snapshot()
	a.logger.Info("lane following stopped",
		"frames", snap.Frames, "fps", snap.FPS, "found", snap.FoundRatio())

	if errors.Is(err, autopilot.ErrSourceExhausted) && a.file.Camera.Mode == camera.ModeFiles {
		return nil
	}
	return err
}

// liveTuning is the tuning taken from a reloaded file, with command line
// overrides applied on top.
func (a *App) liveTuning(f *config.File) autopilot.Tuning {
	t := f.Tuning()
	if a.opts.BaseSpeed > 0 {
		t.BaseSpeed = a.opts.BaseSpeed
	}
	return t
}

// Shutdown stops the motors and releases everything. Safe to call more
// than once and after a failed Init.
func (a *App) Shutdown() {
	if a.drive != nil {
		if err := a.drive.Close(); err != nil {
			a.logger.Warn("close drive", "error", err)
		}
		a.drive = nil
	}
	if a.mount != nil {
		a.mount.Close()
		a.mount = nil
	}
	if a.camera != nil {
		a.camera.Close()
		a.camera = nil
	}
	if a.pilot != nil {
		a.pilot.Close()
		a.pilot = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close telemetry", "error", err)
		}
		a.store = nil
	}
}

// forward lets the pilot be built before the dashboard that observes it.
type forward struct {
	mu     sync.RWMutex
	target autopilot.MaskObserver
}

func (f *forward) set(o autopilot.MaskObserver) {
	f.mu.Lock()
	f.target = o
	f.mu.Unlock()
}

func (f *forward) get() autopilot.MaskObserver {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.target
}

func (f *forward) ObserveFrame(fr autopilot.Frame) {
	if t := f.get(); t != nil {
		t.ObserveFrame(fr)
	}
}

func (f *forward) WantsMask() bool {
	t := f.get()
	return t != nil && t.WantsMask()
}

func (f *forward) ObserveMask(m gocv.Mat) {
	if t := f.get(); t != nil {
		t.ObserveMask(m)
	}
}
