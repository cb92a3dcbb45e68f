// Package web serves the live dashboard: pilot status and controls over
// HTTP, per-frame telemetry and the debug lane mask over websockets.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-jetbot/internal/log"
	"github.com/teslashibe/go-jetbot/pkg/autopilot"
	"github.com/teslashibe/go-jetbot/pkg/camera"
	"github.com/teslashibe/go-jetbot/pkg/hub"
	"github.com/teslashibe/go-jetbot/pkg/telemetry"
)

// Controls is the part of the pilot the dashboard drives.
type Controls interface {
	Status() autopilot.Status
	Pause(paused bool)
	Tune(t autopilot.Tuning) error
}

var _ Controls = (*autopilot.Pilot)(nil)

// RunLister lists recorded runs.
type RunLister interface {
	Runs(ctx context.Context) ([]telemetry.Run, error)
}

// CameraSettings reads and updates the live camera configuration.
type CameraSettings interface {
	GetConfig() camera.Config
	UpdateConfig(params map[string]interface{}) error
}

var _ CameraSettings = (*camera.Manager)(nil)

// Event is a notable change shown in the dashboard log.
type Event struct {
	Time    time.Time `json:"time"`
	Type    string    `json:"type"` // lane, control, fault
	Message string    `json:"message"`
}

// Server is the dashboard.
type Server struct {
	app    *fiber.App
	cfg    Config
	pilot  Controls
	logger *slog.Logger

	stats    *telemetry.Stats
	runs     RunLister
	configFn func() any
	camera   CameraSettings

	telemetryHub *hub.Hub
	maskHub      *hub.Hub

	debug    atomic.Bool
	paused   atomic.Bool
	frames   atomic.Uint64
	lastMask time.Time // loop goroutine only
	lastLane bool      // loop goroutine only
	lastSeen bool      // loop goroutine only

	eventsMu sync.RWMutex
	events   []Event
}

// Option configures a Server.
type Option func(*Server)

// WithStats reports loop performance in /api/status.
func WithStats(st *telemetry.Stats) Option {
	return func(s *Server) { s.stats = st }
}

// WithRuns exposes recorded runs at /api/runs.
func WithRuns(r RunLister) Option {
	return func(s *Server) { s.runs = r }
}

// WithConfig serves the effective configuration at /api/config.
func WithConfig(fn func() any) Option {
	return func(s *Server) { s.configFn = fn }
}

// WithCamera exposes the camera settings at /api/camera.
func WithCamera(c CameraSettings) Option {
	return func(s *Server) { s.camera = c }
}

// NewServer builds the fiber app. Call Start to listen.
func NewServer(cfg Config, pilot Controls, opts ...Option) *Server {
	s := &Server{
		cfg:          cfg,
		pilot:        pilot,
		logger:       log.Component("web"),
		telemetryHub: hub.New("telemetry"),
		maskHub:      hub.New("mask"),
		events:       make([]Event, 0, cfg.EventBuffer),
	}
	for _, o := range opts {
		o(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "JetBot Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())
	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleConfig)
	api.Get("/events", s.handleEvents)
	api.Get("/runs", s.handleRuns)
	api.Post("/drive/pause", s.handlePause)
	api.Post("/drive/resume", s.handleResume)
	api.Post("/tune", s.handleTune)
	api.Post("/debug", s.handleDebug)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleUpdateCamera)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))
	app.Get("/ws/mask", websocket.New(s.handleMaskWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Start runs the hubs and listens until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("dashboard listening", "addr", "http://"+ln.Addr().String())
	go s.telemetryHub.Run(ctx)
	go s.maskHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listener(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// Debug reports whether mask streaming is on.
func (s *Server) Debug() bool { return s.debug.Load() }

// SetDebug switches mask streaming.
func (s *Server) SetDebug(on bool) {
	if s.debug.Swap(on) != on {
		s.AddEvent("control", fmt.Sprintf("debug view %s", onOff(on)))
	}
}

// AddEvent appends to the dashboard log and pushes it to telemetry clients.
func (s *Server) AddEvent(typ, msg string) {
	e := Event{Time: time.Now(), Type: typ, Message: msg}
	s.eventsMu.Lock()
	if len(s.events) >= s.cfg.EventBuffer {
		s.events = append(s.events[:0], s.events[1:]...)
	}
	s.events = append(s.events, e)
	s.eventsMu.Unlock()
	s.telemetryHub.BroadcastJSON(envelope{Kind: "event", Data: e})
}

// Events returns the retained events, oldest first.
func (s *Server) Events() []Event {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	return append([]Event(nil), s.events...)
}

type envelope struct {
	Kind string `json:"kind"` // frame, event
	Data any    `json:"data"`
}

// ObserveFrame forwards the frame to telemetry clients and logs lane
// transitions.
func (s *Server) ObserveFrame(f autopilot.Frame) {
	n := s.frames.Add(1)
	if s.lastSeen && f.Found != s.lastLane && !f.Paused {
		if f.Found {
			s.AddEvent("lane", "lane reacquired")
		} else {
			s.AddEvent("lane", "lane lost")
		}
	}
	s.lastLane, s.lastSeen = f.Found, true
	if f.Fault != "" {
		s.AddEvent("fault", f.Fault)
	}
	if n%uint64(s.cfg.TelemetryEvery) != 0 || s.telemetryHub.ClientCount() == 0 {
		return
	}
	s.telemetryHub.BroadcastJSON(envelope{Kind: "frame", Data: f})
}

// WantsMask asks the pilot for the mask only when someone is watching.
func (s *Server) WantsMask() bool {
	return s.debug.Load() && s.maskHub.ClientCount() > 0 && time.Since(s.lastMask) >= s.cfg.MaskInterval
}

// ObserveMask JPEG encodes the mask for /ws/mask clients.
func (s *Server) ObserveMask(mask gocv.Mat) {
	s.lastMask = time.Now()
	data, err := camera.EncodeJPEG(mask, s.cfg.MaskQuality)
	if err != nil {
		s.logger.Debug("encode mask", "error", err)
		return
	}
	s.maskHub.BroadcastBinary(data)
}

var _ autopilot.MaskObserver = (*Server)(nil)

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
