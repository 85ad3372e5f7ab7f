package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/posetrace/internal/pose"
	"github.com/banshee-data/posetrace/internal/pose/reconstruct"
)

// missing is the echarts placeholder for a gap in a line series.
const missing = "-"

// HipChart renders an HTML page with two line charts: the hip centre
// trajectory in image coordinates (raw and as used for offsets) and the
// per-frame offset applied to the skeleton.
func HipChart(w io.Writer, r *reconstruct.Reconstructor) error {
	frames := r.FrameCount()
	x := make([]string, frames)
	for i := range x {
		x[i] = strconv.Itoa(i)
	}

	raw := r.Capture().Hip
	used := r.HipTrajectory()
	cfg := r.SmoothingConfig()

	subtitle := fmt.Sprintf("frames=%d scale=%.3f window=%d order=%d smoothing=%v",
		frames, r.Scale(), cfg.WindowLength, cfg.PolynomialOrder, cfg.Enabled)

	traj := charts.NewLine()
	traj.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Hip Trajectory", Width: "1000px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Hip Centre (image)", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Normalized", NameLocation: "middle", NameGap: 40}),
	)
	traj.SetXAxis(x).
		AddSeries("raw x", hipSeries(raw, frames, func(p pose.Point2D) float64 { return p.X })).
		AddSeries("raw y", hipSeries(raw, frames, func(p pose.Point2D) float64 { return p.Y })).
		AddSeries("smoothed x", hipSeries(used, frames, func(p pose.Point2D) float64 { return p.X })).
		AddSeries("smoothed y", hipSeries(used, frames, func(p pose.Point2D) float64 { return p.Y }))

	offX := make([]opts.LineData, frames)
	offY := make([]opts.LineData, frames)
	for f := 0; f < frames; f++ {
		if !used.At(f).Detected {
			offX[f] = opts.LineData{Value: missing}
			offY[f] = opts.LineData{Value: missing}
			continue
		}
		off := r.HipOffset(f)
		offX[f] = opts.LineData{Value: off.X}
		offY[f] = opts.LineData{Value: off.Y}
	}

	offsets := charts.NewLine()
	offsets.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1000px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Hip Offset (world)", Subtitle: fmt.Sprintf("scale=%.3f", r.Scale())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Offset (m)", NameLocation: "middle", NameGap: 40}),
	)
	offsets.SetXAxis(x).
		AddSeries("offset x", offX).
		AddSeries("offset y", offY)

	page := components.NewPage()
	page.PageTitle = "posetrace hip report"
	page.AddCharts(traj, offsets)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render hip chart: %w", err)
	}
	return nil
}

func hipSeries(t pose.HipTrajectory, frames int, value func(pose.Point2D) float64) []opts.LineData {
	out := make([]opts.LineData, frames)
	for f := range out {
		s := t.At(f)
		if !s.Detected {
			out[f] = opts.LineData{Value: missing}
			continue
		}
		out[f] = opts.LineData{Value: value(s.Point2D)}
	}
	return out
}
