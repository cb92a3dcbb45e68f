package camera

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Validate())
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
	assert.Equal(t, 30, cfg.Framerate)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"mode", func(c *Config) { c.Mode = "rtsp" }, "mode"},
		{"files", func(c *Config) { c.Mode = ModeFiles }, "files"},
		{"width", func(c *Config) { c.Width = 10 }, "width"},
		{"height", func(c *Config) { c.Height = 5000 }, "height"},
		{"framerate", func(c *Config) { c.Framerate = 0 }, "framerate"},
		{"flip", func(c *Config) { c.FlipMethod = 9 }, "flip_method"},
		{"quality", func(c *Config) { c.Quality = 101 }, "quality"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			errs := cfg.Validate()
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestPresetsAreValid(t *testing.T) {
	for name, cfg := range Presets() {
		assert.Empty(t, cfg.Validate(), name)
	}
	assert.Nil(t, GetPreset("nope"))
	assert.Equal(t, 2, GetPreset(PresetFlipped).FlipMethod)
}

func TestGStreamerPipeline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FlipMethod = 2
	p := GStreamerPipeline(cfg)
	assert.True(t, strings.HasPrefix(p, "nvarguscamerasrc"))
	assert.Contains(t, p, "width=(int)640")
	assert.Contains(t, p, "framerate=(fraction)30/1")
	assert.Contains(t, p, "flip-method=2")
	assert.True(t, strings.HasSuffix(p, "appsink drop=true max-buffers=1"))

	cfg.Pipeline = "videotestsrc ! appsink"
	assert.Equal(t, "videotestsrc ! appsink", GStreamerPipeline(cfg))
}

func TestManagerUpdateConfig(t *testing.T) {
	m := NewManager(DefaultConfig())
	var applied Config
	m.OnConfigChange = func(cfg Config) error {
		applied = cfg
		return nil
	}

	require.NoError(t, m.UpdateConfig(map[string]interface{}{"width": float64(320), "height": 240}))
	assert.Equal(t, 320, m.GetConfig().Width)
	assert.Equal(t, 240, applied.Height)

	require.NoError(t, m.UpdateConfig(map[string]interface{}{"preset": Preset720p}))
	assert.Equal(t, 1280, m.GetConfig().Width)
	assert.Equal(t, ModeAuto, m.GetConfig().Mode)

	err := m.UpdateConfig(map[string]interface{}{"width": 1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, 1280, m.GetConfig().Width, "invalid update must not be stored")

	assert.ErrorIs(t, m.UpdateConfig(map[string]interface{}{"preset": "bogus"}), ErrInvalidConfig)
	assert.ErrorIs(t, m.UpdateConfig(map[string]interface{}{"iso": 800}), ErrInvalidConfig)
	assert.Error(t, m.UpdateConfig(map[string]interface{}{"framerate": 29.5}))

	// The preset goes first whatever the map order; explicit keys win.
	require.NoError(t, m.UpdateConfig(map[string]interface{}{"quality": 55, "preset": PresetLow}))
	assert.Equal(t, 55, m.GetConfig().Quality)
	assert.Equal(t, LowResConfig().Width, m.GetConfig().Width)

	m.OnConfigChange = func(Config) error { return errors.New("busy") }
	assert.Error(t, m.UpdateConfig(map[string]interface{}{"quality": 50}))
}

func TestManagerLockSize(t *testing.T) {
	m := NewManager(DefaultConfig())
	applied := 0
	m.OnConfigChange = func(Config) error {
		applied++
		return nil
	}
	m.LockSize()

	for _, preset := range []string{PresetLow, Preset720p} {
		err := m.UpdateConfig(map[string]interface{}{"preset": preset})
		assert.ErrorIs(t, err, ErrSizeLocked, preset)
	}
	assert.ErrorIs(t, m.UpdateConfig(map[string]interface{}{"width": 320}), ErrSizeLocked)
	assert.Equal(t, DefaultConfig().Width, m.GetConfig().Width)
	assert.Zero(t, applied, "refused updates must not reach the capture")

	// Same size settings still go through.
	require.NoError(t, m.UpdateConfig(map[string]interface{}{"preset": PresetFlipped, "quality": 60}))
	assert.Equal(t, 2, m.GetConfig().FlipMethod)
	assert.Equal(t, 60, m.GetConfig().Quality)
	assert.Equal(t, 1, applied)
}

func writeFrames(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(i*40), 0, 0, 0), 48, 64, gocv.MatTypeCV8UC3)
		ok := gocv.IMWrite(filepath.Join(dir, "frame_"+string(rune('a'+i))+".png"), img)
		img.Close()
		require.True(t, ok)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 3)

	src, err := OpenFiles(filepath.Join(dir, "*.png"), false)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, 3, src.Len())

	frame := gocv.NewMat()
	defer frame.Close()
	for i := 0; i < 3; i++ {
		require.True(t, src.Read(&frame), "frame %d", i)
		assert.Equal(t, 64, frame.Cols())
		assert.Equal(t, 48, frame.Rows())
	}
	assert.False(t, src.Read(&frame))
}

func TestFileSourceLoops(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 2)

	src, err := OpenFiles(filepath.Join(dir, "*.png"), true)
	require.NoError(t, err)

	frame := gocv.NewMat()
	defer frame.Close()
	for i := 0; i < 5; i++ {
		require.True(t, src.Read(&frame))
	}
}

func TestOpenFilesNoMatch(t *testing.T) {
	_, err := OpenFiles(filepath.Join(t.TempDir(), "*.jpg"), false)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestOpenFilesMode(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 1)

	cfg := DefaultConfig()
	cfg.Mode = ModeFiles
	cfg.Files = filepath.Join(dir, "*.png")
	src, err := Open(cfg)
	require.NoError(t, err)
	defer src.Close()
	assert.IsType(t, &FileSource{}, src)
}

func TestMeasureFPS(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 2)
	src, err := OpenFiles(filepath.Join(dir, "*.png"), true)
	require.NoError(t, err)

	seen := 0
	r := MeasureFPS(context.Background(), src, 50*time.Millisecond, func(gocv.Mat) { seen++ })
	assert.Positive(t, r.Frames)
	assert.Equal(t, r.Frames, seen)
	assert.Positive(t, r.FPS)
	assert.Equal(t, 64, r.Width)
}

func TestEncodeJPEG(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 128, 255, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer img.Close()

	data, err := EncodeJPEG(img, 80)
	require.NoError(t, err)
	require.Greater(t, len(data), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])

	empty := gocv.NewMat()
	defer empty.Close()
	_, err = EncodeJPEG(empty, 80)
	assert.Error(t, err)
}
