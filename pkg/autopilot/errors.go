package autopilot

import "errors"

var (
	// ErrSourceExhausted is returned by Run when the frame source stops
	// delivering frames.
	ErrSourceExhausted = errors.New("autopilot: frame source exhausted")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("autopilot: invalid config")
)
