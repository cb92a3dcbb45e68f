// Package camera opens the robot's camera and hands out BGR frames.
// Settings follow the same DefaultConfig/Validate pattern as the control
// packages so they can be tuned from the config file or the dashboard.
package camera

// Source kinds accepted in Config.Mode.
const (
	ModeAuto  = "auto"  // CSI through GStreamer, then USB
	ModeCSI   = "csi"   // nvarguscamerasrc only
	ModeUSB   = "usb"   // V4L2 device only
	ModeFiles = "files" // replay still images
)

// Sensor limits for the IMX219 module shipped with the JetBot.
const (
	SensorMaxWidth  = 3280
	SensorMaxHeight = 2464
	SensorMaxFPS    = 120
)

// Config holds all camera configuration parameters.
type Config struct {
	// === Source ===
	Mode   string `yaml:"mode" json:"mode"`
	Device int    `yaml:"device" json:"device"` // V4L2 index for USB cameras
	Files  string `yaml:"files" json:"files"`   // glob for ModeFiles
	Loop   bool   `yaml:"loop" json:"loop"`     // restart file replay at the end

	// Pipeline overrides the generated GStreamer pipeline when set.
	Pipeline string `yaml:"pipeline" json:"pipeline"`

	// === Resolution ===
	Width     int `yaml:"width" json:"width"`         // Frame width in pixels
	Height    int `yaml:"height" json:"height"`       // Frame height in pixels
	Framerate int `yaml:"framerate" json:"framerate"` // Target FPS

	// FlipMethod is passed to nvvidconv (0 none, 2 rotate 180).
	FlipMethod int `yaml:"flip_method" json:"flip_method"`

	// Quality is the JPEG quality used when frames are streamed, 1-100.
	Quality int `yaml:"quality" json:"quality"`
}

// DefaultConfig returns the 640x480 at 30 FPS setup the lane detector is
// tuned for.
func DefaultConfig() Config {
	return Config{
		Mode:      ModeAuto,
		Device:    0,
		Width:     640,
		Height:    480,
		Framerate: 30,
		Quality:   80,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	switch c.Mode {
	case ModeAuto, ModeCSI, ModeUSB:
	case ModeFiles:
		if c.Files == "" {
			errors = append(errors, "files must be set when mode is files")
		}
	default:
		errors = append(errors, "mode must be auto, csi, usb or files")
	}

	if c.Device < 0 {
		errors = append(errors, "device must not be negative")
	}
	if c.Width < 160 || c.Width > SensorMaxWidth {
		errors = append(errors, "width must be between 160 and 3280")
	}
	if c.Height < 120 || c.Height > SensorMaxHeight {
		errors = append(errors, "height must be between 120 and 2464")
	}
	if c.Framerate < 1 || c.Framerate > SensorMaxFPS {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.FlipMethod < 0 || c.FlipMethod > 7 {
		errors = append(errors, "flip_method must be between 0 and 7")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	return errors
}
