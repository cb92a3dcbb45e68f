package ptz

import "errors"

var (
	// ErrUnknownServo is returned for a servo name other than pan or tilt.
	ErrUnknownServo = errors.New("ptz: unknown servo")

	// ErrUnknownBackend is returned for an unrecognised backend name.
	ErrUnknownBackend = errors.New("ptz: unknown backend")

	// ErrNoBackend is returned when every probed backend failed.
	ErrNoBackend = errors.New("ptz: no servo backend available")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("ptz: invalid config")
)
