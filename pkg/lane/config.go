package lane

import (
	"fmt"
	"math"
)

// HSVRange is an inclusive window on 8-bit HSV channels. OpenCV hue runs 0-180.
type HSVRange struct {
	Lower [3]float64 `yaml:"lower" json:"lower"`
	Upper [3]float64 `yaml:"upper" json:"upper"`
}

// Config holds every threshold of the lane pipeline.
type Config struct {
	// Region of interest: bottom fraction of the frame to keep, in (0, 1].
	ROIHeightRatio float64 `yaml:"roi_height_ratio" json:"roi_height_ratio"`

	// Colour segmentation
	Yellow HSVRange `yaml:"yellow" json:"yellow"`
	White  HSVRange `yaml:"white" json:"white"`

	// Edge segmentation
	BlurKernel int     `yaml:"blur_kernel" json:"blur_kernel"` // odd
	CannyLow   float32 `yaml:"canny_low" json:"canny_low"`
	CannyHigh  float32 `yaml:"canny_high" json:"canny_high"`

	// Probabilistic Hough transform
	HoughRho       float32 `yaml:"hough_rho" json:"hough_rho"`     // pixels
	HoughTheta     float32 `yaml:"hough_theta" json:"hough_theta"` // radians
	HoughThreshold int     `yaml:"hough_threshold" json:"hough_threshold"`
	HoughMinLength float32 `yaml:"hough_min_length" json:"hough_min_length"`
	HoughMaxGap    float32 `yaml:"hough_max_gap" json:"hough_max_gap"`

	// Classification
	SlopeThreshold float64 `yaml:"slope_threshold" json:"slope_threshold"`
	LeftBoundary   float64 `yaml:"left_boundary" json:"left_boundary"`   // left lines must lie left of this fraction of width
	RightBoundary  float64 `yaml:"right_boundary" json:"right_boundary"` // right lines must lie right of this fraction of width

	// Centre estimation when only one boundary is visible
	HalfWidthRatio float64 `yaml:"half_width_ratio" json:"half_width_ratio"`
}

// DefaultConfig returns thresholds tuned for yellow/white tape on a dark floor.
func DefaultConfig() Config {
	return Config{
		ROIHeightRatio: 0.6,

		Yellow: HSVRange{Lower: [3]float64{15, 100, 100}, Upper: [3]float64{35, 255, 255}},
		White:  HSVRange{Lower: [3]float64{0, 0, 200}, Upper: [3]float64{255, 30, 255}},

		BlurKernel: 5,
		CannyLow:   50,
		CannyHigh:  150,

		HoughRho:       1,
		HoughTheta:     math.Pi / 180,
		HoughThreshold: 50,
		HoughMinLength: 100,
		HoughMaxGap:    50,

		SlopeThreshold: 0.3,
		LeftBoundary:   0.6,
		RightBoundary:  0.4,

		HalfWidthRatio: 0.3,
	}
}

// Validate checks ranges. It fails fast on the first problem.
func (c Config) Validate() error {
	if !(c.ROIHeightRatio > 0 && c.ROIHeightRatio <= 1) {
		return fmt.Errorf("roi_height_ratio %v: %w", c.ROIHeightRatio, ErrInvalidROIRatio)
	}
	if c.BlurKernel < 1 || c.BlurKernel%2 == 0 {
		return fmt.Errorf("blur_kernel %d must be a positive odd number: %w", c.BlurKernel, ErrInvalidConfig)
	}
	if c.CannyLow < 0 || c.CannyHigh < c.CannyLow {
		return fmt.Errorf("canny thresholds %v/%v: %w", c.CannyLow, c.CannyHigh, ErrInvalidConfig)
	}
	if c.HoughRho <= 0 || c.HoughTheta <= 0 || c.HoughThreshold <= 0 {
		return fmt.Errorf("hough rho, theta and threshold must be positive: %w", ErrInvalidConfig)
	}
	if c.HoughMinLength < 0 || c.HoughMaxGap < 0 {
		return fmt.Errorf("hough length and gap must not be negative: %w", ErrInvalidConfig)
	}
	if c.SlopeThreshold < 0 {
		return fmt.Errorf("slope_threshold %v: %w", c.SlopeThreshold, ErrInvalidConfig)
	}
	for name, v := range map[string]float64{
		"left_boundary":    c.LeftBoundary,
		"right_boundary":   c.RightBoundary,
		"half_width_ratio": c.HalfWidthRatio,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s %v must be within [0, 1]: %w", name, v, ErrInvalidConfig)
		}
	}
	for name, r := range map[string]HSVRange{"yellow": c.Yellow, "white": c.White} {
		for i := range r.Lower {
			if r.Lower[i] > r.Upper[i] {
				return fmt.Errorf("%s hsv channel %d lower > upper: %w", name, i, ErrInvalidConfig)
			}
		}
	}
	return nil
}
