package web

import (
	"errors"
	"time"
)

// Config controls the dashboard.
type Config struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Host    string `yaml:"host" json:"host"`
	Port    string `yaml:"port" json:"port"`

	// StaticDir, when set, is served at /.
	StaticDir string `yaml:"static_dir" json:"static_dir"`

	// TelemetryEvery forwards every Nth frame to /ws/telemetry.
	TelemetryEvery int `yaml:"telemetry_every" json:"telemetry_every"`

	// MaskInterval and MaskQuality throttle the debug mask stream.
	MaskInterval time.Duration `yaml:"mask_interval" json:"mask_interval"`
	MaskQuality  int           `yaml:"mask_quality" json:"mask_quality"`

	// EventBuffer is how many dashboard events are retained.
	EventBuffer int `yaml:"event_buffer" json:"event_buffer"`
}

// DefaultConfig serves the dashboard on port 8080.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Port:           "8080",
		TelemetryEvery: 1,
		MaskInterval:   200 * time.Millisecond,
		MaskQuality:    70,
		EventBuffer:    200,
	}
}

// Addr is the listen address.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Validate checks the throttles.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("web: port is required")
	}
	if c.TelemetryEvery < 1 {
		return errors.New("web: telemetry_every must be at least 1")
	}
	if c.MaskQuality < 1 || c.MaskQuality > 100 {
		return errors.New("web: mask_quality must be within [1, 100]")
	}
	if c.EventBuffer < 1 {
		return errors.New("web: event_buffer must be positive")
	}
	return nil
}
