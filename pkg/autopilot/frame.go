package autopilot

import (
	"time"

	"github.com/teslashibe/go-jetbot/pkg/drive"
)

// Frame is the record of one loop iteration.
type Frame struct {
	Index    uint64        `json:"index"`
	Time     time.Time     `json:"time"`
	Latency  time.Duration `json:"latency_ns"`
	Found    bool          `json:"found"`
	Source   string        `json:"source"` // both, left, right, none
	Segments int           `json:"segments"`
	Left     int           `json:"left"`
	Right    int           `json:"right"`
	CenterX  float64       `json:"center_x"`
	Error    float64       `json:"error"`    // lane centre minus frame centre, pixels
	Steering float64       `json:"steering"` // clamped PID output before sign flip
	Command  drive.Command `json:"command"`
	Wheels   drive.Wheels  `json:"wheels"`
	Paused   bool          `json:"paused"`
	Fault    string        `json:"fault,omitempty"` // actuator error, if any
}
