package lane

import "errors"

var (
	// ErrInvalidROIRatio is returned for a region ratio outside (0, 1].
	ErrInvalidROIRatio = errors.New("lane: roi height ratio must be in (0, 1]")

	// ErrEmptyFrame is returned for an empty or non-BGR frame.
	ErrEmptyFrame = errors.New("lane: empty frame")

	// ErrInvalidConfig wraps other threshold errors.
	ErrInvalidConfig = errors.New("lane: invalid config")
)
