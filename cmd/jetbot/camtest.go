package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-jetbot/pkg/camera"
	"github.com/teslashibe/go-jetbot/pkg/lane"
)

var (
	camtestDuration time.Duration
	camtestSave     string
	camtestDetect   bool
)

var camtestCmd = &cobra.Command{
	Use:   "camtest",
	Short: "Measure the camera frame rate",
	Long: `Read frames for --duration and report the achieved frame rate.
--save writes the last frame to a file, and --detect runs the lane
detector on every frame and reports how often a lane was found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := camera.Open(cfg.Camera)
		if err != nil {
			return err
		}
		defer src.Close()

		var detector *lane.Detector
		if camtestDetect {
			if detector, err = lane.NewDetector(cfg.Lane); err != nil {
				return err
			}
		}

		last := gocv.NewMat()
		defer last.Close()

		var found, detected int
		var lastEstimate lane.Estimate
		onFrame := func(frame gocv.Mat) {
			frame.CopyTo(&last)
			if detector == nil {
				return
			}
			res, err := detector.Detect(frame, nil)
			if err != nil {
				return
			}
			detected++
			if res.Estimate.Found {
				found++
			}
			lastEstimate = res.Estimate
		}

		ctx, cancel := signalContext()
		defer cancel()
		fmt.Printf("Reading frames for %s...\n", camtestDuration)
		r := camera.MeasureFPS(ctx, src, camtestDuration, onFrame)

		fmt.Printf("Frames:     %d (%d failed reads)\n", r.Frames, r.Failed)
		fmt.Printf("Resolution: %dx%d\n", r.Width, r.Height)
		fmt.Printf("Rate:       %.1f fps over %s\n", r.FPS, r.Elapsed.Round(time.Millisecond))
		if detector != nil && detected > 0 {
			fmt.Printf("Lane found: %d/%d frames (%.0f%%)\n", found, detected, 100*float64(found)/float64(detected))
			if lastEstimate.Found {
				fmt.Printf("Last centre: x=%.1f from %s\n", lastEstimate.X, lastEstimate.Source)
			}
		}

		if camtestSave != "" && !last.Empty() {
			if !gocv.IMWrite(camtestSave, last) {
				return fmt.Errorf("write %s failed", camtestSave)
			}
			fmt.Printf("Saved last frame to %s\n", camtestSave)
		}
		if r.Frames == 0 {
			return camera.ErrNotOpened
		}
		return nil
	},
}

func init() {
	camtestCmd.Flags().DurationVar(&camtestDuration, "duration", 5*time.Second, "How long to read frames")
	camtestCmd.Flags().StringVar(&camtestSave, "save", "", "Write the last frame to this image file")
	camtestCmd.Flags().BoolVar(&camtestDetect, "detect", false, "Run the lane detector on every frame")
}
