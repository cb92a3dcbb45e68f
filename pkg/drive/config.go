package drive

import (
	"fmt"
	"time"
)

// Backend names accepted in Config.Backend.
const (
	BackendAuto    = "auto"
	BackendPCA9685 = "pca9685"
	BackendGPIO    = "gpio"
	BackendMock    = "mock"
)

// MotorPins are the header pins driving one wheel through an H-bridge.
type MotorPins struct {
	PWM      string `yaml:"pwm" json:"pwm"`
	Forward  string `yaml:"forward" json:"forward"`
	Backward string `yaml:"backward" json:"backward"`
}

// Config selects and configures the motor backend.
type Config struct {
	// Backend is auto, pca9685, gpio or mock. Auto probes in that order.
	Backend string `yaml:"backend" json:"backend"`

	// PCA9685 motor driver board
	I2CBus        string `yaml:"i2c_bus" json:"i2c_bus"` // empty = first bus
	I2CAddress    uint16 `yaml:"i2c_address" json:"i2c_address"`
	PWMFrequency  int    `yaml:"pwm_frequency_hz" json:"pwm_frequency_hz"`
	LeftChannels  [2]int `yaml:"left_channels" json:"left_channels"`
	RightChannels [2]int `yaml:"right_channels" json:"right_channels"`

	// Direct GPIO fallback
	LeftPins  MotorPins `yaml:"left_pins" json:"left_pins"`
	RightPins MotorPins `yaml:"right_pins" json:"right_pins"`

	// Mounting
	InvertLeft  bool `yaml:"invert_left" json:"invert_left"`
	InvertRight bool `yaml:"invert_right" json:"invert_right"`

	// Self test
	TestSpeed    float64       `yaml:"test_speed" json:"test_speed"`
	TestDuration time.Duration `yaml:"test_duration" json:"test_duration"`
}

// DefaultConfig matches the JetBot carrier board wiring.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendAuto,
		I2CAddress:    0x40,
		PWMFrequency:  1000,
		LeftChannels:  [2]int{0, 1},
		RightChannels: [2]int{2, 3},
		LeftPins:      MotorPins{PWM: "12", Forward: "16", Backward: "18"},
		RightPins:     MotorPins{PWM: "13", Forward: "15", Backward: "19"},
		TestSpeed:     0.3,
		TestDuration:  time.Second,
	}
}

// Validate checks backend name, channel layout and test parameters.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendPCA9685, BackendGPIO, BackendMock:
	default:
		return fmt.Errorf("%q: %w", c.Backend, ErrUnknownBackend)
	}
	if c.PWMFrequency <= 0 {
		return fmt.Errorf("pwm_frequency_hz must be positive: %w", ErrInvalidConfig)
	}

	seen := make(map[int]bool, 4)
	for _, ch := range []int{c.LeftChannels[0], c.LeftChannels[1], c.RightChannels[0], c.RightChannels[1]} {
		if ch < 0 || ch > 15 {
			return fmt.Errorf("pca9685 channel %d out of range 0-15: %w", ch, ErrInvalidConfig)
		}
		if seen[ch] {
			return fmt.Errorf("pca9685 channel %d used twice: %w", ch, ErrInvalidConfig)
		}
		seen[ch] = true
	}

	if !inRange(c.TestSpeed) {
		return fmt.Errorf("test_speed %v: %w", c.TestSpeed, ErrSpeedRange)
	}
	if c.TestDuration < 0 {
		return fmt.Errorf("test_duration must not be negative: %w", ErrInvalidConfig)
	}
	return nil
}
