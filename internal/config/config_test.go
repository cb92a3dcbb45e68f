package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/teslashibe/go-jetbot/pkg/camera"
	"github.com/teslashibe/go-jetbot/pkg/drive"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), f)
	assert.Equal(t, 0.6, f.Lane.ROIHeightRatio)
	assert.Equal(t, 0.5, f.Steering.Kp)
	assert.Equal(t, 0.2, f.Autopilot.BaseSpeed)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jetbot.yaml")
	writeFile(t, path, `
steering:
  kp: 0.8
  kd: 0.05
autopilot:
  base_speed: 0.3
drive:
  backend: mock
  test_duration: 250ms
lane:
  roi_height_ratio: 0.5
`)
	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.8, f.Steering.Kp)
	assert.Equal(t, 0.1, f.Steering.Ki, "unset keys keep their default")
	assert.Equal(t, 0.05, f.Steering.Kd)
	assert.Equal(t, 0.3, f.Autopilot.BaseSpeed)
	assert.Equal(t, drive.BackendMock, f.Drive.Backend)
	assert.Equal(t, 250*time.Millisecond, f.Drive.TestDuration)
	assert.Equal(t, 0.5, f.Lane.ROIHeightRatio)

	tu := f.Tuning()
	assert.Equal(t, 0.8, tu.Gains.Kp)
	assert.Equal(t, 0.3, tu.BaseSpeed)
	assert.Equal(t, 0.8, tu.MaxSteering)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvCameraDevice, "1")
	t.Setenv(EnvDriveBackend, "mock")
	t.Setenv(EnvWebPort, "9090")
	t.Setenv(EnvTelemetryDB, "/tmp/runs.db")

	f, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", f.Logging.Level)
	assert.Equal(t, 1, f.Camera.Device)
	assert.Equal(t, camera.ModeUSB, f.Camera.Mode)
	assert.Equal(t, "mock", f.Drive.Backend)
	assert.Equal(t, "9090", f.Web.Port)
	assert.Equal(t, "/tmp/runs.db", f.Telemetry.Path)
}

func TestEnvCameraDeviceMustBeInteger(t *testing.T) {
	t.Setenv(EnvCameraDevice, "front")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "camera", ce.Section)
}

func TestValidateReportsEverySection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, `
steering:
  kp: -1
lane:
  roi_height_ratio: 1.5
camera:
  width: 0
`)
	_, err := Load(path)
	require.Error(t, err)

	sections := map[string]bool{}
	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	for _, e := range joined.Unwrap() {
		var ce *ConfigError
		require.ErrorAs(t, e, &ce)
		sections[ce.Section] = true
	}
	assert.True(t, sections["steering"])
	assert.True(t, sections["lane"])
	assert.True(t, sections["camera"])
	assert.ErrorIs(t, err, camera.ErrInvalidConfig)
}

func TestParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	writeFile(t, path, "steering: [")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jetbot.yaml")
	f := Default()
	f.Steering.Kp = 0.65
	f.Drive.Backend = drive.BackendMock
	require.NoError(t, f.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jetbot.yaml")
	writeFile(t, path, "steering:\n  kp: 0.5\n")

	var (
		mu  sync.Mutex
		got []float64
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 50*time.Millisecond, func(f *File) {
			mu.Lock()
			got = append(got, f.Steering.Kp)
			mu.Unlock()
		})
	}()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Give the watcher time to register before the edits.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "steering:\n  kp: -3\n") // invalid, skipped
	time.Sleep(150 * time.Millisecond)
	writeFile(t, path, "steering:\n  kp: 0.9\n")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && got[len(got)-1] == 0.9
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, kp := range got {
		assert.NotEqual(t, -3.0, kp)
	}
}
