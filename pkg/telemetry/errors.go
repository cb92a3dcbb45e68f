package telemetry

import "errors"

var (
	// ErrNoRun is returned by EndRun when no run is active.
	ErrNoRun = errors.New("telemetry: no active run")

	// ErrRunActive is returned by BeginRun while another run is recording.
	ErrRunActive = errors.New("telemetry: a run is already active")

	// ErrRunNotFound is returned for an unknown run ID.
	ErrRunNotFound = errors.New("telemetry: run not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("telemetry: store closed")

	// ErrNoFrames is returned when plotting a run without frames.
	ErrNoFrames = errors.New("telemetry: run has no frames")
)
