package autopilot

import (
	"fmt"
	"time"
)

// Config holds the drive loop parameters.
type Config struct {
	BaseSpeed    float64 `yaml:"base_speed" json:"base_speed"`         // forward speed on a straight, [0, 1]
	MaxSteering  float64 `yaml:"max_steering" json:"max_steering"`     // clamp on the PID output, (0, 1]
	FrameCenterX float64 `yaml:"frame_center_x" json:"frame_center_x"` // pixel column the lane centre is steered to

	// MaxMissedFrames is how many consecutive failed reads are tolerated
	// before Run gives up. Zero stops on the first failure.
	MaxMissedFrames int           `yaml:"max_missed_frames" json:"max_missed_frames"`
	RetryDelay      time.Duration `yaml:"retry_delay" json:"retry_delay"`

	// WarnInterval rate limits repeated actuator warnings.
	WarnInterval time.Duration `yaml:"warn_interval" json:"warn_interval"`
}

// DefaultConfig returns conservative speeds for a 640 pixel wide camera.
func DefaultConfig() Config {
	return Config{
		BaseSpeed:       0.2,
		MaxSteering:     0.8,
		FrameCenterX:    320,
		MaxMissedFrames: 0,
		RetryDelay:      10 * time.Millisecond,
		WarnInterval:    time.Second,
	}
}

// Validate checks speed ranges.
func (c Config) Validate() error {
	if c.BaseSpeed < 0 || c.BaseSpeed > 1 {
		return fmt.Errorf("base_speed %v must be within [0, 1]: %w", c.BaseSpeed, ErrInvalidConfig)
	}
	if c.MaxSteering <= 0 || c.MaxSteering > 1 {
		return fmt.Errorf("max_steering %v must be within (0, 1]: %w", c.MaxSteering, ErrInvalidConfig)
	}
	if c.FrameCenterX < 0 {
		return fmt.Errorf("frame_center_x %v must not be negative: %w", c.FrameCenterX, ErrInvalidConfig)
	}
	if c.MaxMissedFrames < 0 {
		return fmt.Errorf("max_missed_frames %d must not be negative: %w", c.MaxMissedFrames, ErrInvalidConfig)
	}
	return nil
}
