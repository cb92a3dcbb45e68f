package ptz

import (
	"fmt"
	"time"
)

// Servo names.
const (
	Pan  = "pan"
	Tilt = "tilt"
)

// Backend names accepted in Config.Backend.
const (
	BackendAuto    = "auto"
	BackendPCA9685 = "pca9685"
	BackendFeetech = "feetech"
	BackendMock    = "mock"
)

// Limits bound a servo's travel in degrees.
type Limits struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Clamp limits deg to the travel range.
func (l Limits) Clamp(deg float64) float64 {
	if deg < l.Min {
		return l.Min
	}
	if deg > l.Max {
		return l.Max
	}
	return deg
}

// Config describes the camera pan/tilt mount.
type Config struct {
	Backend string `yaml:"backend" json:"backend"`

	PanLimits  Limits  `yaml:"pan_limits" json:"pan_limits"`
	TiltLimits Limits  `yaml:"tilt_limits" json:"tilt_limits"`
	Center     float64 `yaml:"center" json:"center"`

	// DriveTilt is the tilt held while following a lane; lower looks
	// further down the road.
	DriveTilt float64 `yaml:"drive_tilt" json:"drive_tilt"`

	// Hobby servos on the PCA9685 board
	I2CBus       string        `yaml:"i2c_bus" json:"i2c_bus"`
	I2CAddress   uint16        `yaml:"i2c_address" json:"i2c_address"`
	PanChannel   int           `yaml:"pan_channel" json:"pan_channel"`
	TiltChannel  int           `yaml:"tilt_channel" json:"tilt_channel"`
	PWMFrequency int           `yaml:"pwm_frequency_hz" json:"pwm_frequency_hz"`
	MinPulse     time.Duration `yaml:"min_pulse" json:"min_pulse"` // pulse at 0 degrees
	MaxPulse     time.Duration `yaml:"max_pulse" json:"max_pulse"` // pulse at 180 degrees

	// Feetech serial bus servos
	SerialPort string        `yaml:"serial_port" json:"serial_port"` // empty = scan
	BaudRate   int           `yaml:"baud_rate" json:"baud_rate"`
	PanID      int           `yaml:"pan_id" json:"pan_id"`
	TiltID     int           `yaml:"tilt_id" json:"tilt_id"`
	BusTimeout time.Duration `yaml:"bus_timeout" json:"bus_timeout"`
}

// DefaultConfig matches the pan/tilt kit on channels 14 and 15.
func DefaultConfig() Config {
	return Config{
		Backend:      BackendAuto,
		PanLimits:    Limits{Min: 0, Max: 180},
		TiltLimits:   Limits{Min: 30, Max: 150},
		Center:       90,
		DriveTilt:    90,
		I2CAddress:   0x40,
		PanChannel:   14,
		TiltChannel:  15,
		PWMFrequency: 50,
		MinPulse:     time.Millisecond,
		MaxPulse:     2 * time.Millisecond,
		BaudRate:     1_000_000,
		PanID:        1,
		TiltID:       2,
		BusTimeout:   100 * time.Millisecond,
	}
}

// Validate checks the limits and hardware layout.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendPCA9685, BackendFeetech, BackendMock:
	default:
		return fmt.Errorf("%q: %w", c.Backend, ErrUnknownBackend)
	}
	for name, l := range map[string]Limits{Pan: c.PanLimits, Tilt: c.TiltLimits} {
		if l.Min < 0 || l.Max > 180 || l.Min >= l.Max {
			return fmt.Errorf("%s limits %v-%v: %w", name, l.Min, l.Max, ErrInvalidConfig)
		}
	}
	if c.PanChannel == c.TiltChannel || c.PanChannel < 0 || c.PanChannel > 15 || c.TiltChannel < 0 || c.TiltChannel > 15 {
		return fmt.Errorf("servo channels %d/%d: %w", c.PanChannel, c.TiltChannel, ErrInvalidConfig)
	}
	if c.PWMFrequency <= 0 || c.MinPulse <= 0 || c.MaxPulse <= c.MinPulse {
		return fmt.Errorf("servo pulse timing: %w", ErrInvalidConfig)
	}
	if c.PanID == c.TiltID {
		return fmt.Errorf("bus servo ids must differ: %w", ErrInvalidConfig)
	}
	return nil
}
