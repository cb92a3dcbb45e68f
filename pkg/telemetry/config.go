package telemetry

import (
	"errors"
	"time"
)

// Config controls the run recorder.
type Config struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	Path          string        `yaml:"path" json:"path"`
	BatchSize     int           `yaml:"batch_size" json:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`
	Buffer        int           `yaml:"buffer" json:"buffer"` // frames queued before dropping
	PlotDir       string        `yaml:"plot_dir" json:"plot_dir"`
}

// DefaultConfig records to jetbot.db beside the binary.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		Path:          "jetbot.db",
		BatchSize:     64,
		FlushInterval: 500 * time.Millisecond,
		Buffer:        1024,
		PlotDir:       "plots",
	}
}

// Validate checks sizes and intervals.
func (c Config) Validate() error {
	if c.Path == "" {
		return errors.New("telemetry: path is required")
	}
	if c.BatchSize <= 0 || c.Buffer <= 0 {
		return errors.New("telemetry: batch_size and buffer must be positive")
	}
	if c.FlushInterval <= 0 {
		return errors.New("telemetry: flush_interval must be positive")
	}
	return nil
}
