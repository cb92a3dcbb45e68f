package lane

import "gocv.io/x/gocv"

// Segmenter produces a binary mask of likely lane pixels by OR-ing a colour
// mask (yellow or white paint) with a Canny edge mask.
type Segmenter struct {
	cfg Config

	yellowLo, yellowHi gocv.Scalar
	whiteLo, whiteHi   gocv.Scalar
}

// NewSegmenter builds a segmenter from cfg.
func NewSegmenter(cfg Config) *Segmenter {
	return &Segmenter{
		cfg:      cfg,
		yellowLo: scalar(cfg.Yellow.Lower),
		yellowHi: scalar(cfg.Yellow.Upper),
		whiteLo:  scalar(cfg.White.Lower),
		whiteHi:  scalar(cfg.White.Upper),
	}
}

func scalar(v [3]float64) gocv.Scalar {
	return gocv.NewScalar(v[0], v[1], v[2], 0)
}

// ColorMask thresholds the region in HSV for yellow and white paint.
func (s *Segmenter) ColorMask(r *Region, dst *gocv.Mat) {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(r.BGR, &hsv, gocv.ColorBGRToHSV)

	yellow := gocv.NewMat()
	defer yellow.Close()
	white := gocv.NewMat()
	defer white.Close()

	gocv.InRangeWithScalar(hsv, s.yellowLo, s.yellowHi, &yellow)
	gocv.InRangeWithScalar(hsv, s.whiteLo, s.whiteHi, &white)
	gocv.BitwiseOr(yellow, white, dst)
}

// EdgeMask runs Canny on the blurred grayscale region.
func (s *Segmenter) EdgeMask(r *Region, dst *gocv.Mat) {
	gocv.Canny(r.Blurred, dst, s.cfg.CannyLow, s.cfg.CannyHigh)
}

// Segment writes colour OR edge into dst, sized like the region.
func (s *Segmenter) Segment(r *Region, dst *gocv.Mat) {
	color := gocv.NewMat()
	defer color.Close()
	edges := gocv.NewMat()
	defer edges.Close()

	s.ColorMask(r, &color)
	s.EdgeMask(r, &edges)
	gocv.BitwiseOr(color, edges, dst)
}
