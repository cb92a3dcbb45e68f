package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/teslashibe/go-jetbot/internal/log"
	"github.com/teslashibe/go-jetbot/internal/timeutil"
	"github.com/teslashibe/go-jetbot/pkg/autopilot"
	"github.com/teslashibe/go-jetbot/pkg/drive"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) (*Store, *timeutil.MockClock) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "telemetry.db")
	cfg.BatchSize = 4
	clock := timeutil.NewMockClock(epoch)
	s, err := Open(cfg, WithClock(clock), WithLogger(log.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func sampleFrames(n int) []autopilot.Frame {
	frames := make([]autopilot.Frame, n)
	for i := range frames {
		found := i%3 != 0
		f := autopilot.Frame{
			Index:    uint64(i + 1),
			Time:     epoch.Add(time.Duration(i) * 100 * time.Millisecond),
			Latency:  time.Duration(20+i) * time.Millisecond,
			Found:    found,
			Source:   "none",
			Segments: i,
		}
		if found {
			f.Source = "both"
			f.Left, f.Right = 2, 3
			f.CenterX = 320 + float64(i)
			f.Error = float64(i)
			f.Steering = -0.01 * float64(i)
			f.Command = drive.Command{Linear: 0.2, Steering: 0.01 * float64(i)}
			f.Wheels = drive.Mix(f.Command)
		}
		frames[i] = f
	}
	frames[n-1].Fault = "i2c write failed"
	return frames
}

func TestRunLifecycle(t *testing.T) {
	s, clock := openStore(t)
	ctx := context.Background()

	run, err := s.BeginRun(ctx, RunMeta{Label: "oval", Backend: "mock", Config: map[string]float64{"kp": 0.5}})
	require.NoError(t, err)
	assert.True(t, run.Active())
	assert.NotEmpty(t, run.ID)

	_, err = s.BeginRun(ctx, RunMeta{})
	assert.ErrorIs(t, err, ErrRunActive)

	frames := sampleFrames(10)
	for _, f := range frames {
		assert.True(t, s.Record(f))
	}

	clock.Advance(3 * time.Second)
	ended, err := s.EndRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, ended.Frames)
	assert.Equal(t, 3*time.Second, ended.Duration())
	assert.JSONEq(t, `{"kp":0.5}`, string(ended.Config))

	got, err := s.Frames(ctx, run.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(frames, got); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}

	_, err = s.EndRun(ctx)
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestRecordWithoutRun(t *testing.T) {
	s, _ := openStore(t)
	assert.False(t, s.Record(autopilot.Frame{Index: 1}))
	s.ObserveFrame(autopilot.Frame{Index: 2})
	assert.Zero(t, s.Dropped())
}

func TestRunsNewestFirst(t *testing.T) {
	s, clock := openStore(t)
	ctx := context.Background()

	var ids []string
	for _, label := range []string{"first", "second"} {
		r, err := s.BeginRun(ctx, RunMeta{Label: label})
		require.NoError(t, err)
		ids = append(ids, r.ID)
		clock.Advance(time.Minute)
		_, err = s.EndRun(ctx)
		require.NoError(t, err)
	}

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[1], runs[0].ID)
	assert.Equal(t, "first", runs[1].Label)
	assert.JSONEq(t, `{}`, string(runs[1].Config))
}

func TestUnknownRun(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	_, err := s.Frames(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, s.DeleteRun(ctx, "missing"), ErrRunNotFound)
}

func TestDeleteRun(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	r, err := s.BeginRun(ctx, RunMeta{Label: "scratch"})
	require.NoError(t, err)
	s.Record(sampleFrames(2)[1])
	_, err = s.EndRun(ctx)
	require.NoError(t, err)

	require.NoError(t, s.DeleteRun(ctx, r.ID))
	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestCloseEndsActiveRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "t.db")
	s, err := Open(cfg, WithLogger(log.Discard()))
	require.NoError(t, err)

	r, err := s.BeginRun(context.Background(), RunMeta{})
	require.NoError(t, err)
	for _, f := range sampleFrames(5) {
		s.Record(f)
	}
	require.NoError(t, s.Close())
	assert.False(t, s.Record(autopilot.Frame{}))
	_, err = s.BeginRun(context.Background(), RunMeta{})
	assert.ErrorIs(t, err, ErrClosed)

	// Reopen and check the frames landed.
	s2, err := Open(cfg, WithLogger(log.Discard()))
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Run(context.Background(), r.ID)
	require.NoError(t, err)
	assert.False(t, got.Active())
	assert.Equal(t, 5, got.Frames)
}

func TestEndRunWhileRecording(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	run, err := s.BeginRun(ctx, RunMeta{Label: "busy"})
	require.NoError(t, err)

	started := make(chan struct{})
	accepted := make(chan int)
	go func() {
		n := 0
		for i := uint64(1); ; i++ {
			if i == 50 {
				close(started)
			}
			if !s.Record(autopilot.Frame{Index: i, Time: epoch}) {
				if _, ok := s.ActiveRun(); !ok {
					accepted <- n
					return
				}
				continue
			}
			n++
		}
	}()

	<-started
	ended, err := s.EndRun(ctx)
	require.NoError(t, err)
	n := <-accepted

	// Every frame Record accepted is counted in the closed run.
	assert.Equal(t, n, ended.Frames)
	frames, err := s.Frames(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, frames, n)
}

func TestStats(t *testing.T) {
	st := NewStats(0)
	for _, f := range sampleFrames(11) {
		st.ObserveFrame(f)
	}
	snap := st.Snapshot()
	assert.EqualValues(t, 11, snap.Frames)
	assert.EqualValues(t, 7, snap.Found)
	assert.EqualValues(t, 1, snap.Faults)
	assert.Equal(t, time.Second, snap.Elapsed)
	assert.InDelta(t, 10.0, snap.FPS, 1e-9)
	assert.Equal(t, 25*time.Millisecond, snap.AvgLatency)
	assert.Equal(t, 30*time.Millisecond, snap.MaxLatency)
	assert.InDelta(t, 7.0/11.0, snap.FoundRatio(), 1e-9)

	st.Reset()
	assert.Equal(t, Snapshot{}, st.Snapshot())
	assert.Equal(t, snap, Summarize(sampleFrames(11)))
}

func TestPlotRun(t *testing.T) {
	dir := t.TempDir()
	run := Run{ID: "0123456789abcdef"}
	paths, err := PlotRun(run, sampleFrames(30), dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Equal(t, filepath.Join(dir, "run_01234567_error.png"), paths[0])

	_, err = PlotRun(run, nil, dir)
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	c := DefaultConfig()
	c.BatchSize = 0
	assert.Error(t, c.Validate())
}
