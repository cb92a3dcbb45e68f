package lane

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Region is the bottom slice of a frame together with its grayscale and
// blurred grayscale versions. All three share the same size.
type Region struct {
	Top     int // first frame row included
	BGR     gocv.Mat
	Gray    gocv.Mat
	Blurred gocv.Mat
}

// Width returns the region width in pixels.
func (r *Region) Width() int { return r.BGR.Cols() }

// Height returns the region height in pixels.
func (r *Region) Height() int { return r.BGR.Rows() }

// Close releases the region's matrices.
func (r *Region) Close() {
	r.BGR.Close()
	r.Gray.Close()
	r.Blurred.Close()
}

// ROITop returns floor(height*(1-ratio)), the first row kept for ratio.
func ROITop(height int, ratio float64) int {
	return int(math.Floor(float64(height) * (1 - ratio)))
}

// Preprocess keeps rows [floor(h*(1-ratio)), h) of frame and derives the
// grayscale and Gaussian blurred variants used by edge detection.
// The caller must Close the returned region.
func Preprocess(frame gocv.Mat, ratio float64, blurKernel int) (*Region, error) {
	if !(ratio > 0 && ratio <= 1) {
		return nil, fmt.Errorf("ratio %v: %w", ratio, ErrInvalidROIRatio)
	}
	if frame.Empty() || frame.Channels() != 3 {
		return nil, ErrEmptyFrame
	}

	h, w := frame.Rows(), frame.Cols()
	top := ROITop(h, ratio)
	if top >= h {
		return nil, ErrEmptyFrame
	}

	view := frame.Region(image.Rect(0, top, w, h))
	defer view.Close()

	r := &Region{
		Top:     top,
		BGR:     view.Clone(),
		Gray:    gocv.NewMat(),
		Blurred: gocv.NewMat(),
	}
	gocv.CvtColor(r.BGR, &r.Gray, gocv.ColorBGRToGray)
	gocv.GaussianBlur(r.Gray, &r.Blurred, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)
	return r, nil
}
