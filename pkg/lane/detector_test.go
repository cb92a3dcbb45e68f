package lane

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 0}

func blankFrame(w, h int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC3)
}

// laneFrame draws two converging boundaries meeting the bottom row at
// x=100 and x=540.
func laneFrame() gocv.Mat {
	img := blankFrame(640, 480)
	gocv.Line(&img, image.Pt(100, 479), image.Pt(280, 200), white, 8)
	gocv.Line(&img, image.Pt(540, 479), image.Pt(360, 200), white, 8)
	return img
}

func TestROITop(t *testing.T) {
	tests := []struct {
		height int
		ratio  float64
		want   int
	}{
		{480, 0.6, 192},
		{480, 1, 0},
		{480, 0.5, 240},
		{481, 0.6, 192},
	}
	for _, tt := range tests {
		if got := ROITop(tt.height, tt.ratio); got != tt.want {
			t.Errorf("ROITop(%d, %v) = %d, want %d", tt.height, tt.ratio, got, tt.want)
		}
	}
}

func TestPreprocess(t *testing.T) {
	frame := blankFrame(640, 480)
	defer frame.Close()

	r, err := Preprocess(frame, 0.6, 5)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	defer r.Close()

	if r.Top != 192 {
		t.Errorf("top = %d, want 192", r.Top)
	}
	if r.Width() != 640 || r.Height() != 288 {
		t.Errorf("region = %dx%d, want 640x288", r.Width(), r.Height())
	}
	if r.Gray.Channels() != 1 || r.Blurred.Channels() != 1 {
		t.Error("gray and blurred must be single channel")
	}
	if r.Gray.Rows() != 288 || r.Blurred.Cols() != 640 {
		t.Error("derived images must match region size")
	}
}

func TestPreprocess_Errors(t *testing.T) {
	frame := blankFrame(64, 48)
	defer frame.Close()

	for _, ratio := range []float64{0, -0.1, 1.01} {
		if _, err := Preprocess(frame, ratio, 5); !errors.Is(err, ErrInvalidROIRatio) {
			t.Errorf("ratio %v: err = %v, want ErrInvalidROIRatio", ratio, err)
		}
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if _, err := Preprocess(empty, 0.6, 5); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("empty frame: err = %v, want ErrEmptyFrame", err)
	}
}

func TestDetector_BlankFrameHasNoLane(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	frame := blankFrame(640, 480)
	defer frame.Close()

	res, err := d.Detect(frame, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(res.Segments) != 0 {
		t.Errorf("expected no segments, got %d", len(res.Segments))
	}
	if res.Estimate.Found {
		t.Error("blank frame must not produce a lane")
	}
}

func TestDetector_SyntheticLane(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	frame := laneFrame()
	defer frame.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	res, err := d.Detect(frame, &mask)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if mask.Rows() != res.Height || mask.Cols() != res.Width {
		t.Errorf("mask %dx%d does not match region %dx%d", mask.Cols(), mask.Rows(), res.Width, res.Height)
	}
	if len(res.Left) == 0 || len(res.Right) == 0 {
		t.Fatalf("expected both boundaries, got left=%d right=%d (segments=%d)", len(res.Left), len(res.Right), len(res.Segments))
	}
	if !res.Estimate.Found || res.Estimate.Source != SourceBoth {
		t.Fatalf("estimate = %+v, want both sides found", res.Estimate)
	}
	if !floatEquals(res.Estimate.X, 320, 20) {
		t.Errorf("centre = %v, want about 320", res.Estimate.X)
	}
}

func TestSegmenter_ColorMask(t *testing.T) {
	cfg := DefaultConfig()
	s := NewSegmenter(cfg)

	frame := blankFrame(100, 100)
	defer frame.Close()
	// Yellow in BGR.
	gocv.Rectangle(&frame, image.Rect(10, 60, 40, 90), color.RGBA{R: 255, G: 220, B: 0}, -1)

	r, err := Preprocess(frame, 0.5, cfg.BlurKernel)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	s.ColorMask(r, &mask)

	if n := gocv.CountNonZero(mask); n == 0 {
		t.Error("yellow patch not detected")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"ratio zero", func(c *Config) { c.ROIHeightRatio = 0 }, ErrInvalidROIRatio},
		{"ratio above one", func(c *Config) { c.ROIHeightRatio = 1.2 }, ErrInvalidROIRatio},
		{"even blur", func(c *Config) { c.BlurKernel = 4 }, ErrInvalidConfig},
		{"canny order", func(c *Config) { c.CannyHigh = 10 }, ErrInvalidConfig},
		{"hough threshold", func(c *Config) { c.HoughThreshold = 0 }, ErrInvalidConfig},
		{"boundary", func(c *Config) { c.LeftBoundary = 1.5 }, ErrInvalidConfig},
		{"hsv order", func(c *Config) { c.Yellow.Lower[0] = 90 }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if _, err := NewDetector(cfg); err == nil {
				t.Error("NewDetector accepted invalid config")
			}
		})
	}
}
