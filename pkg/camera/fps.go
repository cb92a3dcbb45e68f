package camera

import (
	"context"
	"time"

	"gocv.io/x/gocv"
)

// FPSReport summarises a capture benchmark.
type FPSReport struct {
	Frames  int           `json:"frames"`
	Failed  int           `json:"failed"`
	Elapsed time.Duration `json:"elapsed"`
	FPS     float64       `json:"fps"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
}

// MeasureFPS reads from src for duration (or until ctx ends) and reports
// the achieved frame rate. onFrame, when set, sees every frame.
func MeasureFPS(ctx context.Context, src Source, duration time.Duration, onFrame func(gocv.Mat)) FPSReport {
	frame := gocv.NewMat()
	defer frame.Close()

	var r FPSReport
	start := time.Now()
	deadline := start.Add(duration)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		if !src.Read(&frame) {
			r.Failed++
			if r.Failed > 10 && r.Frames == 0 {
				break
			}
			continue
		}
		r.Frames++
		r.Width, r.Height = frame.Cols(), frame.Rows()
		if onFrame != nil {
			onFrame(frame)
		}
	}

	r.Elapsed = time.Since(start)
	if secs := r.Elapsed.Seconds(); secs > 0 {
		r.FPS = float64(r.Frames) / secs
	}
	return r
}
