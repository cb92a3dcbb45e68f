package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// EncodeJPEG compresses img for streaming to the dashboard.
func EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	if img.Empty() {
		return nil, fmt.Errorf("encode: empty image")
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases C memory; copy before Close.
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
