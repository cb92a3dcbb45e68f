// Package drive turns abstract drive commands into per-wheel speeds and
// sends them to one of several motor backends.
package drive

import "math"

// Command is an abstract drive request.
// Linear is forward speed in [-1, 1]; positive Steering speeds up the right
// wheel and slows the left.
type Command struct {
	Linear   float64 `json:"linear"`
	Steering float64 `json:"steering"`
}

// Stop is the zero command.
var Stop = Command{}

// Wheels holds per-wheel speeds, each in [-1, 1].
type Wheels struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Mix converts a command into wheel speeds:
// left = linear - steering, right = linear + steering, each clamped to [-1, 1].
func Mix(cmd Command) Wheels {
	return Wheels{
		Left:  clamp(cmd.Linear-cmd.Steering, -1, 1),
		Right: clamp(cmd.Linear+cmd.Steering, -1, 1),
	}
}

// SpeedFactor slows the robot down in turns: 1 - 0.5*|steering|.
// steering is the raw, already clamped controller output.
func SpeedFactor(steering float64) float64 {
	return 1 - 0.5*math.Abs(steering)
}

// Derate returns the linear speed for a given base speed and steering output.
func Derate(baseSpeed, steering float64) float64 {
	return baseSpeed * SpeedFactor(steering)
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func inRange(speed float64) bool {
	return speed >= -1 && speed <= 1 && !math.IsNaN(speed)
}
