package drive

import "errors"

var (
	// ErrSpeedRange is returned for a wheel speed outside [-1, 1].
	ErrSpeedRange = errors.New("drive: speed must be between -1 and 1")

	// ErrUnknownMotor is returned for a motor name other than left or right.
	ErrUnknownMotor = errors.New("drive: unknown motor")

	// ErrUnknownBackend is returned for an unrecognised backend name.
	ErrUnknownBackend = errors.New("drive: unknown backend")

	// ErrNoBackend is returned when every probed backend failed.
	ErrNoBackend = errors.New("drive: no motor backend available")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("drive: invalid config")
)
