package telemetry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-jetbot/internal/log"
	"github.com/teslashibe/go-jetbot/pkg/autopilot"
)

// Snapshot is a point-in-time view of loop performance.
type Snapshot struct {
	Frames     uint64        `json:"frames"`
	Found      uint64        `json:"found"`
	Faults     uint64        `json:"faults"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	FPS        float64       `json:"fps"`
	AvgLatency time.Duration `json:"avg_latency_ns"`
	MaxLatency time.Duration `json:"max_latency_ns"`
}

// FoundRatio is the share of frames where a lane was found.
func (s Snapshot) FoundRatio() float64 {
	if s.Frames == 0 {
		return 0
	}
	return float64(s.Found) / float64(s.Frames)
}

// Stats counts frames and derives the average frame rate from frame
// timestamps. It logs a summary every ReportEvery frames when non-zero.
type Stats struct {
	mu           sync.Mutex
	first, last  time.Time
	frames       uint64
	found        uint64
	faults       uint64
	totalLatency time.Duration
	maxLatency   time.Duration

	ReportEvery uint64
	logger      *slog.Logger
}

// NewStats creates a counter that reports every reportEvery frames.
func NewStats(reportEvery uint64) *Stats {
	return &Stats{ReportEvery: reportEvery, logger: log.Component("stats")}
}

// ObserveFrame implements autopilot.Observer.
func (s *Stats) ObserveFrame(f autopilot.Frame) {
	s.mu.Lock()
	if s.frames == 0 {
		s.first = f.Time
	}
	s.last = f.Time
	s.frames++
	if f.Found {
		s.found++
	}
	if f.Fault != "" {
		s.faults++
	}
	s.totalLatency += f.Latency
	if f.Latency > s.maxLatency {
		s.maxLatency = f.Latency
	}
	report := s.ReportEvery > 0 && s.frames%s.ReportEvery == 0
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if report {
		s.logger.Info("loop performance",
			"frames", snap.Frames,
			"fps", snap.FPS,
			"found", snap.FoundRatio(),
			"avg_latency", snap.AvgLatency)
	}
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Stats) snapshotLocked() Snapshot {
	snap := Snapshot{
		Frames:     s.frames,
		Found:      s.found,
		Faults:     s.faults,
		Elapsed:    s.last.Sub(s.first),
		MaxLatency: s.maxLatency,
	}
	if s.frames > 0 {
		snap.AvgLatency = s.totalLatency / time.Duration(s.frames)
	}
	// n frames span n-1 intervals
	if s.frames > 1 && snap.Elapsed > 0 {
		snap.FPS = float64(s.frames-1) / snap.Elapsed.Seconds()
	}
	return snap
}

// Reset clears all counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.first, s.last = time.Time{}, time.Time{}
	s.frames, s.found, s.faults = 0, 0, 0
	s.totalLatency, s.maxLatency = 0, 0
}

// Summarize computes a snapshot from stored frames.
func Summarize(frames []autopilot.Frame) Snapshot {
	s := &Stats{logger: log.Discard()}
	for _, f := range frames {
		s.ObserveFrame(f)
	}
	return s.Snapshot()
}

var _ autopilot.Observer = (*Stats)(nil)
