// Package config loads the jetbot YAML file. Every package keeps its own
// Config with defaults and validation; File only aggregates them and adds
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-jetbot/pkg/autopilot"
	"github.com/teslashibe/go-jetbot/pkg/camera"
	"github.com/teslashibe/go-jetbot/pkg/drive"
	"github.com/teslashibe/go-jetbot/pkg/lane"
	"github.com/teslashibe/go-jetbot/pkg/ptz"
	"github.com/teslashibe/go-jetbot/pkg/steering"
	"github.com/teslashibe/go-jetbot/pkg/telemetry"
	"github.com/teslashibe/go-jetbot/pkg/web"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "jetbot.yaml"

// Environment overrides.
const (
	EnvLogLevel     = "JETBOT_LOG_LEVEL"
	EnvCameraDevice = "JETBOT_CAMERA_DEVICE"
	EnvDriveBackend = "JETBOT_DRIVE_BACKEND"
	EnvWebPort      = "JETBOT_WEB_PORT"
	EnvTelemetryDB  = "JETBOT_TELEMETRY_DB"
)

// Logging configures internal/log.
type Logging struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// File is the whole configuration file.
type File struct {
	Camera    camera.Config    `yaml:"camera" json:"camera"`
	Lane      lane.Config      `yaml:"lane" json:"lane"`
	Steering  steering.Config  `yaml:"steering" json:"steering"`
	Autopilot autopilot.Config `yaml:"autopilot" json:"autopilot"`
	Drive     drive.Config     `yaml:"drive" json:"drive"`
	PTZ       ptz.Config       `yaml:"ptz" json:"ptz"`
	Telemetry telemetry.Config `yaml:"telemetry" json:"telemetry"`
	Web       web.Config       `yaml:"web" json:"web"`
	Logging   Logging          `yaml:"logging" json:"logging"`
}

// Default returns every package's defaults.
func Default() *File {
	return &File{
		Camera:    camera.DefaultConfig(),
		Lane:      lane.DefaultConfig(),
		Steering:  steering.DefaultConfig(),
		Autopilot: autopilot.DefaultConfig(),
		Drive:     drive.DefaultConfig(),
		PTZ:       ptz.DefaultConfig(),
		Telemetry: telemetry.DefaultConfig(),
		Web:       web.DefaultConfig(),
		Logging:   Logging{Level: "info"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(path string) (*File, error) {
	f := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := f.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Save writes the configuration as YAML.
func (f *File) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (f *File) applyEnvOverrides() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		f.Logging.Level = v
	}
	if v := os.Getenv(EnvCameraDevice); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Section: "camera", Message: EnvCameraDevice + " must be an integer", Err: err}
		}
		f.Camera.Device = n
		if f.Camera.Mode == camera.ModeAuto {
			f.Camera.Mode = camera.ModeUSB
		}
	}
	if v := os.Getenv(EnvDriveBackend); v != "" {
		f.Drive.Backend = v
	}
	if v := os.Getenv(EnvWebPort); v != "" {
		f.Web.Port = v
	}
	if v := os.Getenv(EnvTelemetryDB); v != "" {
		f.Telemetry.Path = v
	}
	return nil
}

// Validate checks every section and reports all failures.
func (f *File) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, &ConfigError{Section: section, Message: err.Error(), Err: err})
		}
	}

	for _, msg := range f.Camera.Validate() {
		errs = append(errs, &ConfigError{Section: "camera", Message: msg, Err: camera.ErrInvalidConfig})
	}
	add("lane", f.Lane.Validate())
	add("steering", f.Steering.Validate())
	add("autopilot", f.Autopilot.Validate())
	add("drive", f.Drive.Validate())
	add("ptz", f.PTZ.Validate())
	if f.Telemetry.Enabled {
		add("telemetry", f.Telemetry.Validate())
	}
	if f.Web.Enabled {
		add("web", f.Web.Validate())
	}
	if f.Camera.Width > 0 && (f.Autopilot.FrameCenterX <= 0 || f.Autopilot.FrameCenterX >= float64(f.Camera.Width)) {
		add("autopilot", fmt.Errorf("frame_center_x %v outside a %d pixel frame", f.Autopilot.FrameCenterX, f.Camera.Width))
	}
	return errors.Join(errs...)
}

// Tuning is the part of the file that can change while driving.
func (f *File) Tuning() autopilot.Tuning {
	return autopilot.Tuning{
		Gains:       f.Steering,
		BaseSpeed:   f.Autopilot.BaseSpeed,
		MaxSteering: f.Autopilot.MaxSteering,
	}
}
