package drive

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

type gpioMotor struct {
	pwm, fwd, rev gpio.PinIO
}

// GPIOBackend drives the H-bridge straight from header pins: one PWM pin and
// two direction pins per wheel.
type GPIOBackend struct {
	left, right gpioMotor
	freq        physic.Frequency
	cfg         Config
}

// NewGPIOBackend looks up every configured pin.
func NewGPIOBackend(cfg Config) (*GPIOBackend, error) {
	if err := initHost(); err != nil {
		return nil, err
	}

	left, err := lookupMotor(cfg.LeftPins)
	if err != nil {
		return nil, fmt.Errorf("left motor: %w", err)
	}
	right, err := lookupMotor(cfg.RightPins)
	if err != nil {
		return nil, fmt.Errorf("right motor: %w", err)
	}

	b := &GPIOBackend{
		left:  left,
		right: right,
		freq:  physic.Frequency(cfg.PWMFrequency) * physic.Hertz,
		cfg:   cfg,
	}
	if err := b.Stop(); err != nil {
		return nil, err
	}
	return b, nil
}

func lookupMotor(pins MotorPins) (gpioMotor, error) {
	var m gpioMotor
	for _, p := range []struct {
		name string
		dst  *gpio.PinIO
	}{
		{pins.PWM, &m.pwm},
		{pins.Forward, &m.fwd},
		{pins.Backward, &m.rev},
	} {
		pin := gpioreg.ByName(p.name)
		if pin == nil {
			return m, fmt.Errorf("gpio pin %q not found", p.name)
		}
		*p.dst = pin
	}
	return m, nil
}

// SetSpeeds sets both wheels.
func (b *GPIOBackend) SetSpeeds(left, right float64) error {
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

func (b *GPIOBackend) setMotor(m gpioMotor, speed float64) error {
	fwd, rev := directionLevels(speed)
	if err := m.fwd.Out(fwd); err != nil {
		return err
	}
	if err := m.rev.Out(rev); err != nil {
		return err
	}
	duty := gpio.Duty(math.Round(math.Abs(clamp(speed, -1, 1)) * float64(gpio.DutyMax)))
	return m.pwm.PWM(duty, b.freq)
}

// directionLevels maps the sign of speed to H-bridge inputs. Zero brakes low.
func directionLevels(speed float64) (fwd, rev gpio.Level) {
	switch {
	case speed > 0:
		return gpio.High, gpio.Low
	case speed < 0:
		return gpio.Low, gpio.High
	default:
		return gpio.Low, gpio.Low
	}
}

// Stop drives every pin low.
func (b *GPIOBackend) Stop() error {
	for _, m := range []gpioMotor{b.left, b.right} {
		if err := m.pwm.Out(gpio.Low); err != nil {
			return err
		}
		if err := m.fwd.Out(gpio.Low); err != nil {
			return err
		}
		if err := m.rev.Out(gpio.Low); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the motors and halts PWM.
func (b *GPIOBackend) Close() error {
	err := b.Stop()
	for _, m := range []gpioMotor{b.left, b.right} {
		if herr := m.pwm.Halt(); herr != nil && err == nil {
			err = herr
		}
	}
	return err
}
