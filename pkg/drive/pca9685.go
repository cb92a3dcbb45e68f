package drive

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
)

// pca9685Steps is the resolution of one PCA9685 channel.
const pca9685Steps = 4095

// PCA9685Backend drives two DC motors through an H-bridge fed by a PCA9685
// PWM expander. Each motor uses a channel pair: the first carries PWM when
// driving forward, the second when driving backward.
type PCA9685Backend struct {
	bus   i2c.BusCloser
	dev   *pca9685.Dev
	left  [2]int
	right [2]int
	cfg   Config
}

// NewPCA9685Backend opens the I2C bus and configures the PWM frequency.
func NewPCA9685Backend(cfg Config) (*PCA9685Backend, error) {
	if err := initHost(); err != nil {
		return nil, err
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.I2CBus, err)
	}

	addr := cfg.I2CAddress
	if addr == 0 {
		addr = pca9685.I2CAddr
	}
	dev, err := pca9685.NewI2C(bus, addr)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("pca9685 at 0x%02x: %w", addr, err)
	}

	if err := dev.SetPwmFreq(physic.Frequency(cfg.PWMFrequency) * physic.Hertz); err != nil {
		bus.Close()
		return nil, fmt.Errorf("set pwm frequency: %w", err)
	}

	b := &PCA9685Backend{
		bus:   bus,
		dev:   dev,
		left:  cfg.LeftChannels,
		right: cfg.RightChannels,
		cfg:   cfg,
	}
	if err := b.Stop(); err != nil {
		bus.Close()
		return nil, err
	}
	return b, nil
}

// SetSpeeds sets both wheels.
func (b *PCA9685Backend) SetSpeeds(left, right float64) error {
	if b.cfg.InvertLeft {
		left = -left
	}
	if b.cfg.InvertRight {
		right = -right
	}
	if err := b.setMotor(b.left, left); err != nil {
		return fmt.Errorf("left motor: %w", err)
	}
	if err := b.setMotor(b.right, right); err != nil {
		return fmt.Errorf("right motor: %w", err)
	}
	return nil
}

func (b *PCA9685Backend) setMotor(ch [2]int, speed float64) error {
	fwd, rev := channelDuties(speed)
	if err := b.dev.SetPwm(ch[0], 0, fwd); err != nil {
		return err
	}
	return b.dev.SetPwm(ch[1], 0, rev)
}

// Stop cuts PWM on every channel.
func (b *PCA9685Backend) Stop() error {
	return b.dev.SetAllPwm(0, 0)
}

// Close stops the motors and releases the bus.
func (b *PCA9685Backend) Close() error {
	stopErr := b.Stop()
	if err := b.bus.Close(); err != nil {
		return err
	}
	return stopErr
}

// channelDuties splits a signed speed into forward and reverse 12-bit duties.
func channelDuties(speed float64) (fwd, rev gpio.Duty) {
	d := gpio.Duty(math.Round(math.Abs(clamp(speed, -1, 1)) * pca9685Steps))
	if speed >= 0 {
		return d, 0
	}
	return 0, d
}
