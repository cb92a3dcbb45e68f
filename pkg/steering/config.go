package steering

import "fmt"

// Config holds the PID gains.
type Config struct {
	Kp       float64 `yaml:"kp" json:"kp"`             // Proportional gain
	Ki       float64 `yaml:"ki" json:"ki"`             // Integral gain
	Kd       float64 `yaml:"kd" json:"kd"`             // Derivative gain
	Setpoint float64 `yaml:"setpoint" json:"setpoint"` // Desired measurement, 0 = lane centred
}

// DefaultConfig returns the gains the robot ships with.
func DefaultConfig() Config {
	return Config{
		Kp:       0.5,
		Ki:       0.1,
		Kd:       0.2,
		Setpoint: 0,
	}
}

// Validate rejects negative gains.
func (c Config) Validate() error {
	if c.Kp < 0 || c.Ki < 0 || c.Kd < 0 {
		return fmt.Errorf("gains must be non-negative (kp=%v ki=%v kd=%v): %w", c.Kp, c.Ki, c.Kd, ErrInvalidGain)
	}
	return nil
}
