package camera

import "errors"

var (
	// ErrNotOpened is returned when no capture backend could be opened.
	ErrNotOpened = errors.New("camera: could not open capture")

	// ErrNoFiles is returned when a replay glob matches nothing.
	ErrNoFiles = errors.New("camera: no image files matched")

	// ErrInvalidConfig wraps validation failures.
	ErrInvalidConfig = errors.New("camera: invalid config")

	// ErrSizeLocked is returned for a frame size change while driving.
	ErrSizeLocked = errors.New("camera: frame size is locked while driving")
)
