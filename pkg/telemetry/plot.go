package telemetry

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/teslashibe/go-jetbot/pkg/autopilot"
)

var (
	colorError    = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	colorSteering = color.RGBA{R: 30, G: 90, B: 200, A: 255}
	colorLinear   = color.RGBA{R: 30, G: 150, B: 60, A: 255}
	colorLeft     = color.RGBA{R: 230, G: 140, B: 0, A: 255}
	colorRight    = color.RGBA{R: 120, G: 40, B: 160, A: 255}
)

type series struct {
	name  string
	color color.Color
	value func(autopilot.Frame) float64
}

// PlotRun writes two PNGs for a run into dir: the lane error in pixels
// and the drive commands. It returns the file paths.
func PlotRun(run Run, frames []autopilot.Frame, dir string) ([]string, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%s: %w", run.ID, ErrNoFrames)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}
	short := run.ID
	if len(short) > 8 {
		short = short[:8]
	}

	errPlot, err := linePlot(
		fmt.Sprintf("Run %s - Lane error", short), "Error (px)", frames,
		series{"error", colorError, func(f autopilot.Frame) float64 { return f.Error }},
	)
	if err != nil {
		return nil, err
	}
	cmdPlot, err := linePlot(
		fmt.Sprintf("Run %s - Drive commands", short), "Command", frames,
		series{"steering", colorSteering, func(f autopilot.Frame) float64 { return f.Command.Steering }},
		series{"linear", colorLinear, func(f autopilot.Frame) float64 { return f.Command.Linear }},
		series{"left wheel", colorLeft, func(f autopilot.Frame) float64 { return f.Wheels.Left }},
		series{"right wheel", colorRight, func(f autopilot.Frame) float64 { return f.Wheels.Right }},
	)
	if err != nil {
		return nil, err
	}

	paths := []string{
		filepath.Join(dir, fmt.Sprintf("run_%s_error.png", short)),
		filepath.Join(dir, fmt.Sprintf("run_%s_commands.png", short)),
	}
	for i, p := range []*plot.Plot{errPlot, cmdPlot} {
		if err := p.Save(14*vg.Inch, 6*vg.Inch, paths[i]); err != nil {
			return nil, fmt.Errorf("save %s: %w", paths[i], err)
		}
	}
	return paths, nil
}

func linePlot(title, yLabel string, frames []autopilot.Frame, lines ...series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = yLabel

	for _, s := range lines {
		pts := make(plotter.XYs, 0, len(frames))
		for _, f := range frames {
			// Frames without a lane carry no error measurement.
			if s.name == "error" && !f.Found {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(f.Index), Y: s.value(f)})
		}
		if len(pts) == 0 {
			continue
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		l.Color = s.color
		l.Width = vg.Points(1)
		p.Add(l)
		p.Legend.Add(s.name, l)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}
