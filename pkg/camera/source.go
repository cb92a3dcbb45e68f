package camera

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-jetbot/internal/log"
)

// Source is a frame producer. Read fills dst with a BGR frame and returns
// false when none is available.
type Source interface {
	Read(dst *gocv.Mat) bool
	Close() error
}

// Capture reads frames from a live camera.
type Capture struct {
	mu      sync.Mutex
	cap     *gocv.VideoCapture
	backend string
	logger  *slog.Logger
}

// GStreamerPipeline builds the nvarguscamerasrc pipeline for the Jetson CSI
// camera, converting to BGR for appsink.
func GStreamerPipeline(cfg Config) string {
	if cfg.Pipeline != "" {
		return cfg.Pipeline
	}
	return fmt.Sprintf(
		"nvarguscamerasrc ! video/x-raw(memory:NVMM), width=(int)%d, height=(int)%d, format=(string)NV12, framerate=(fraction)%d/1 ! "+
			"nvvidconv flip-method=%d ! video/x-raw, width=(int)%d, height=(int)%d, format=(string)BGRx ! "+
			"videoconvert ! video/x-raw, format=(string)BGR ! appsink drop=true max-buffers=1",
		cfg.Width, cfg.Height, cfg.Framerate, cfg.FlipMethod, cfg.Width, cfg.Height)
}

// Open returns a frame source for cfg. In auto mode the CSI camera is tried
// first and the USB device is the fallback.
func Open(cfg Config) (Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
	}

	switch cfg.Mode {
	case ModeFiles:
		return OpenFiles(cfg.Files, cfg.Loop)
	case ModeCSI:
		return openCSI(cfg)
	case ModeUSB:
		return openUSB(cfg)
	}

	c, csiErr := openCSI(cfg)
	if csiErr == nil {
		return c, nil
	}
	log.Component("camera").Info("csi camera unavailable, trying usb", "error", csiErr)

	c, usbErr := openUSB(cfg)
	if usbErr != nil {
		return nil, errors.Join(ErrNotOpened, csiErr, usbErr)
	}
	return c, nil
}

func openCSI(cfg Config) (*Capture, error) {
	vc, err := gocv.OpenVideoCaptureWithAPI(GStreamerPipeline(cfg), gocv.VideoCaptureGstreamer)
	if err != nil {
		return nil, fmt.Errorf("gstreamer: %w", err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("gstreamer: %w", ErrNotOpened)
	}
	return newCapture(vc, "csi"), nil
}

func openUSB(cfg Config) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("device %d: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("device %d: %w", cfg.Device, ErrNotOpened)
	}
	c := newCapture(vc, "usb")
	c.Apply(cfg)
	return c, nil
}

func newCapture(vc *gocv.VideoCapture, backend string) *Capture {
	c := &Capture{cap: vc, backend: backend, logger: log.Component("camera")}
	c.logger.Info("camera opened", "backend", backend,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight),
		"fps", vc.Get(gocv.VideoCaptureFPS))
	return c
}

// Backend returns "csi" or "usb".
func (c *Capture) Backend() string {
	return c.backend
}

// Apply pushes resolution and frame rate to the device. GStreamer captures
// ignore it; their format is fixed by the pipeline.
func (c *Capture) Apply(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != "usb" {
		return nil
	}
	c.cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	c.cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	c.cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	return nil
}

// Read grabs the next frame into dst.
func (c *Capture) Read(dst *gocv.Mat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cap.Read(dst) && !dst.Empty()
}

// Close releases the device.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cap.Close()
}
