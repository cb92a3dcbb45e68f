package lane

// Classify splits segments into left and right lane candidates.
//
// A segment is a left candidate when its slope is below -SlopeThreshold and
// both endpoints lie left of LeftBoundary*width; a right candidate when its
// slope is above SlopeThreshold and both endpoints lie right of
// RightBoundary*width. Vertical and shallow segments are dropped.
func Classify(segments []Segment, width int, cfg Config) (left, right []Segment) {
	leftLimit := cfg.LeftBoundary * float64(width)
	rightLimit := cfg.RightBoundary * float64(width)

	for _, s := range segments {
		slope, ok := s.Slope()
		if !ok {
			continue
		}
		x1, x2 := float64(s.X1), float64(s.X2)

		switch {
		case slope < -cfg.SlopeThreshold && x1 < leftLimit && x2 < leftLimit:
			left = append(left, s)
		case slope > cfg.SlopeThreshold && x1 > rightLimit && x2 > rightLimit:
			right = append(right, s)
		}
	}
	return left, right
}
