// Package lane finds the centre of a taped lane in a camera frame.
//
// The pipeline runs strictly forward and keeps no state between frames:
// Preprocess crops the bottom of the frame, Segmenter builds a binary mask,
// ExtractSegments runs a probabilistic Hough transform, Classify splits the
// segments into left and right boundaries and EstimateCenter fits each side
// and returns the lane centre.
package lane

import (
	"gocv.io/x/gocv"
)

// Result is everything one frame produced.
type Result struct {
	ROITop   int
	Width    int // region width
	Height   int // region height
	Segments []Segment
	Left     []Segment
	Right    []Segment
	Estimate Estimate
}

// Detector runs the full lane pipeline on BGR frames.
type Detector struct {
	cfg Config
	seg *Segmenter
}

// NewDetector validates cfg and builds a detector.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, seg: NewSegmenter(cfg)}, nil
}

// Config returns the detector thresholds.
func (d *Detector) Config() Config {
	return d.cfg
}

// Detect runs every stage on frame. When mask is non-nil the binary mask is
// copied into it for display. A frame with no lane is not an error; check
// Result.Estimate.Found.
func (d *Detector) Detect(frame gocv.Mat, mask *gocv.Mat) (Result, error) {
	region, err := Preprocess(frame, d.cfg.ROIHeightRatio, d.cfg.BlurKernel)
	if err != nil {
		return Result{}, err
	}
	defer region.Close()

	binary := gocv.NewMat()
	defer binary.Close()
	d.seg.Segment(region, &binary)

	if mask != nil {
		binary.CopyTo(mask)
	}

	res := Result{
		ROITop: region.Top,
		Width:  region.Width(),
		Height: region.Height(),
	}
	res.Segments = ExtractSegments(binary, d.cfg)
	res.Left, res.Right = Classify(res.Segments, res.Width, d.cfg)
	res.Estimate = EstimateCenter(res.Left, res.Right, res.Width, res.Height, d.cfg)
	return res, nil
}
