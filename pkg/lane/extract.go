package lane

import "gocv.io/x/gocv"

// Segment is a line segment in region-local pixel coordinates.
type Segment struct {
	X1, Y1, X2, Y2 int
}

// Slope returns dy/dx. ok is false for vertical segments.
func (s Segment) Slope() (slope float64, ok bool) {
	dx := s.X2 - s.X1
	if dx == 0 {
		return 0, false
	}
	return float64(s.Y2-s.Y1) / float64(dx), true
}

// Points returns both endpoints.
func (s Segment) Points() [2]Point {
	return [2]Point{
		{X: float64(s.X1), Y: float64(s.Y1)},
		{X: float64(s.X2), Y: float64(s.Y2)},
	}
}

// Point is an image coordinate.
type Point struct {
	X, Y float64
}

// ExtractSegments runs the probabilistic Hough transform on a binary mask.
// An empty result means no lane is visible.
func ExtractSegments(mask gocv.Mat, cfg Config) []Segment {
	lines := gocv.NewMat()
	defer lines.Close()

	gocv.HoughLinesPWithParams(mask, &lines,
		cfg.HoughRho, cfg.HoughTheta, cfg.HoughThreshold,
		cfg.HoughMinLength, cfg.HoughMaxGap)

	if lines.Empty() {
		return nil
	}

	segments := make([]Segment, 0, lines.Rows())
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		if len(v) < 4 {
			continue
		}
		segments = append(segments, Segment{
			X1: int(v[0]), Y1: int(v[1]),
			X2: int(v[2]), Y2: int(v[3]),
		})
	}
	return segments
}
