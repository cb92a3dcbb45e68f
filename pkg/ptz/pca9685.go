package ptz

import (
	"context"
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"
)

// pwmSteps is the tick count of one PCA9685 period.
const pwmSteps = 4096

// PCA9685Backend drives hobby servos from two channels of a PCA9685.
type PCA9685Backend struct {
	bus      i2c.BusCloser
	dev      *pca9685.Dev
	channels map[string]int
	cfg      Config
}

// NewPCA9685Backend opens the board and sets the servo frame rate.
func NewPCA9685Backend(cfg Config) (*PCA9685Backend, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
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
		return nil, fmt.Errorf("set servo frequency: %w", err)
	}
	return &PCA9685Backend{
		bus:      bus,
		dev:      dev,
		channels: map[string]int{Pan: cfg.PanChannel, Tilt: cfg.TiltChannel},
		cfg:      cfg,
	}, nil
}

// SetAngle moves one servo.
func (b *PCA9685Backend) SetAngle(_ context.Context, servo string, deg float64) error {
	ch, ok := b.channels[servo]
	if !ok {
		return fmt.Errorf("%q: %w", servo, ErrUnknownServo)
	}
	return b.dev.SetPwm(ch, 0, servoTicks(deg, b.cfg))
}

// Close releases the bus. Servos keep their last position.
func (b *PCA9685Backend) Close() error {
	return b.bus.Close()
}

// servoPulse maps 0..180 degrees linearly onto MinPulse..MaxPulse.
func servoPulse(deg float64, cfg Config) time.Duration {
	span := float64(cfg.MaxPulse - cfg.MinPulse)
	return cfg.MinPulse + time.Duration(deg/180*span)
}

// servoTicks converts an angle to the off-count within one PWM period.
func servoTicks(deg float64, cfg Config) gpio.Duty {
	period := time.Second / time.Duration(cfg.PWMFrequency)
	ratio := float64(servoPulse(deg, cfg)) / float64(period)
	return gpio.Duty(math.Round(ratio * pwmSteps))
}
