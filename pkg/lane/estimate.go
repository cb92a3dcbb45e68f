package lane

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Polynomial is a lane boundary x = M*y + B in region coordinates.
// x is modelled as a function of y so near-vertical boundaries stay finite.
type Polynomial struct {
	M, B float64
}

// At evaluates the boundary at row y.
func (p Polynomial) At(y float64) float64 {
	return p.M*y + p.B
}

// Source says which boundaries produced an estimate.
type Source int

const (
	SourceNone Source = iota
	SourceBoth
	SourceLeft
	SourceRight
)

func (s Source) String() string {
	switch s {
	case SourceBoth:
		return "both"
	case SourceLeft:
		return "left"
	case SourceRight:
		return "right"
	default:
		return "none"
	}
}

// Estimate is the lane centre at the bottom row of the region.
type Estimate struct {
	X      float64
	Found  bool
	Source Source

	Left, Right       Polynomial
	HasLeft, HasRight bool
}

// FitLine fits x = M*y + B through the endpoints of segments by ordinary
// least squares with y as the independent variable. It reports false when
// fewer than two distinct rows are present, since the fit is then undefined.
func FitLine(segments []Segment) (Polynomial, bool) {
	if len(segments) == 0 {
		return Polynomial{}, false
	}

	xs := make([]float64, 0, 2*len(segments))
	ys := make([]float64, 0, 2*len(segments))
	distinct := false
	for _, s := range segments {
		for _, p := range s.Points() {
			if len(ys) > 0 && p.Y != ys[0] {
				distinct = true
			}
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
		}
	}
	if !distinct {
		return Polynomial{}, false
	}

	b, m := stat.LinearRegression(ys, xs, nil, false)
	if math.IsNaN(m) || math.IsNaN(b) || math.IsInf(m, 0) {
		return Polynomial{}, false
	}
	return Polynomial{M: m, B: b}, true
}

// EstimateCenter fits each side and evaluates the lane centre at the bottom
// row (height-1) of a region width pixels wide.
//
// Both sides: the midpoint. One side: offset inward by HalfWidthRatio*width.
// Neither: Found is false.
func EstimateCenter(left, right []Segment, width, height int, cfg Config) Estimate {
	var est Estimate
	est.Left, est.HasLeft = FitLine(left)
	est.Right, est.HasRight = FitLine(right)

	y := float64(height - 1)
	offset := cfg.HalfWidthRatio * float64(width)

	switch {
	case est.HasLeft && est.HasRight:
		est.X = (est.Left.At(y) + est.Right.At(y)) / 2
		est.Source = SourceBoth
	case est.HasLeft:
		est.X = est.Left.At(y) + offset
		est.Source = SourceLeft
	case est.HasRight:
		est.X = est.Right.At(y) - offset
		est.Source = SourceRight
	default:
		return est
	}
	est.Found = true
	return est
}
