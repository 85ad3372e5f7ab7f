// Package report renders diagnostic views of a processed capture: PNG
// plots of individual landmark channels and an HTML hip trajectory chart.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/posetrace/internal/pose"
)

// ErrNoData is returned when a channel has no detected samples to plot.
var ErrNoData = errors.New("no detected samples")

// Axis selects one landmark coordinate.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// ParseAxis parses "x", "y" or "z".
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown axis %q (want x, y or z)", s)
}

func (a Axis) value(l pose.Landmark) float64 {
	switch a {
	case AxisY:
		return l.Y
	case AxisZ:
		return l.Z
	}
	return l.X
}

var (
	rawColor      = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	smoothedColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
)

// channelPoints collects the detected samples of one joint coordinate.
func channelPoints(seq pose.Sequence, joint int, axis Axis) plotter.XYs {
	pts := make(plotter.XYs, 0, len(seq))
	for f, frame := range seq {
		j := frame.At(joint)
		if !j.Detected {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(f), Y: axis.value(j.Landmark)})
	}
	return pts
}

// PlotChannel writes a PNG comparing one joint coordinate before and after
// smoothing. Raw samples are drawn as points, smoothed as a line.
func PlotChannel(path string, raw, smoothed pose.Sequence, joint int, axis Axis) error {
	rawPts := channelPoints(raw, joint, axis)
	if len(rawPts) == 0 {
		return fmt.Errorf("%s.%s: %w", pose.JointName(joint), axis, ErrNoData)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - %s (world)", pose.JointName(joint), axis)
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Position (m)"

	scatter, err := plotter.NewScatter(rawPts)
	if err != nil {
		return err
	}
	scatter.Color = rawColor
	scatter.Radius = vg.Points(2)
	p.Add(scatter)
	p.Legend.Add("raw", scatter)

	if smoothedPts := channelPoints(smoothed, joint, axis); len(smoothedPts) > 0 {
		line, err := plotter.NewLine(smoothedPts)
		if err != nil {
			return err
		}
		line.Color = smoothedColor
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add("smoothed", line)
	}

	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create plot directory: %w", err)
	}
	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
