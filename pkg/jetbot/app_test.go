package jetbot

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-jetbot/internal/config"
	"github.com/teslashibe/go-jetbot/pkg/camera"
	"github.com/teslashibe/go-jetbot/pkg/drive"
	"github.com/teslashibe/go-jetbot/pkg/ptz"
)

// writeLaneImages renders n frames of a straight lane into dir.
func writeLaneImages(t *testing.T, dir string, n int) {
	t.Helper()
	white := color.RGBA{R: 255, G: 255, B: 255, A: 0}
	for i := 0; i < n; i++ {
		img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
		gocv.Line(&img, image.Pt(100, 479), image.Pt(280, 200), white, 8)
		gocv.Line(&img, image.Pt(540, 479), image.Pt(360, 200), white, 8)
		path := filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i))
		require.True(t, gocv.IMWrite(path, img))
		img.Close()
	}
}

func testFile(t *testing.T) *config.File {
	t.Helper()
	dir := t.TempDir()
	writeLaneImages(t, dir, 5)

	f := config.Default()
	f.Camera.Mode = camera.ModeFiles
	f.Camera.Files = filepath.Join(dir, "*.png")
	f.Drive.Backend = drive.BackendMock
	f.PTZ.Backend = ptz.BackendMock
	f.Telemetry.Path = filepath.Join(dir, "runs.db")
	f.Web.Enabled = false
	return f
}

func TestReplayRecordsRun(t *testing.T) {
	app, err := New(testFile(t), Options{Label: "replay"})
	require.NoError(t, err)
	require.NoError(t, app.Init())
	defer app.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, app.Run(ctx))

	snap := app.Stats().Snapshot()
	assert.EqualValues(t, 5, snap.Frames)
	assert.EqualValues(t, 5, snap.Found)

	runs, err := app.Store().Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "replay", runs[0].Label)
	assert.Equal(t, "mock", runs[0].Backend)
	assert.Equal(t, 5, runs[0].Frames)
	assert.False(t, runs[0].Active())

	frames, err := app.Store().Frames(ctx, runs[0].ID)
	require.NoError(t, err)
	for _, f := range frames {
		assert.True(t, f.Found)
		assert.InDelta(t, 320, f.CenterX, 20)
		assert.Positive(t, f.Command.Linear)
	}
}

func TestInitRejectsBadBackend(t *testing.T) {
	f := testFile(t)
	f.Drive.Backend = "hovercraft"
	_, err := New(f, Options{})
	assert.Error(t, err)
}

func TestShutdownTwice(t *testing.T) {
	app, err := New(testFile(t), Options{NoMount: true})
	require.NoError(t, err)
	require.NoError(t, app.Init())
	app.Shutdown()
	app.Shutdown()
}

func TestSpeedOverrideSurvivesReload(t *testing.T) {
	f := testFile(t)
	app, err := New(f, Options{BaseSpeed: 0.35})
	require.NoError(t, err)
	assert.Equal(t, 0.35, app.file.Autopilot.BaseSpeed)
	assert.Equal(t, config.Default().Autopilot.BaseSpeed, f.Autopilot.BaseSpeed, "caller's file is not modified")

	reloaded := config.Default()
	reloaded.Steering.Kp = 0.9
	reloaded.Autopilot.BaseSpeed = 0.1
	tuning := app.liveTuning(reloaded)
	assert.Equal(t, 0.35, tuning.BaseSpeed)
	assert.Equal(t, 0.9, tuning.Gains.Kp)

	plain, err := New(testFile(t), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.1, plain.liveTuning(reloaded).BaseSpeed)
}

func TestInitLocksCameraSize(t *testing.T) {
	app, err := New(testFile(t), Options{NoMount: true})
	require.NoError(t, err)
	require.NoError(t, app.Init())
	defer app.Shutdown()

	err = app.settings.UpdateConfig(map[string]interface{}{"preset": camera.PresetLow})
	assert.ErrorIs(t, err, camera.ErrSizeLocked)
	assert.Equal(t, 640, app.settings.GetConfig().Width)
	assert.Equal(t, 320.0, app.file.Autopilot.FrameCenterX)
}
