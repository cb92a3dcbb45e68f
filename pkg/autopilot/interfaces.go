package autopilot

import (
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-jetbot/pkg/drive"
	"github.com/teslashibe/go-jetbot/pkg/lane"
)

// Detector finds the lane in a frame. *lane.Detector is the production
// implementation.
type Detector interface {
	Detect(frame gocv.Mat, mask *gocv.Mat) (lane.Result, error)
}

var _ Detector = (*lane.Detector)(nil)

// FrameSource delivers camera frames. Read returns false when no frame
// could be read.
type FrameSource interface {
	Read(dst *gocv.Mat) bool
}

// Actuator applies a drive command and reports the wheel speeds used.
type Actuator interface {
	Move(cmd drive.Command) (drive.Wheels, error)
}

// Observer receives a record of every processed frame. Observers are called
// on the loop goroutine and must not block.
type Observer interface {
	ObserveFrame(f Frame)
}

// MaskObserver additionally receives the binary lane mask when it asks for
// it. The mask is only valid for the duration of the call.
type MaskObserver interface {
	Observer
	WantsMask() bool
	ObserveMask(mask gocv.Mat)
}
