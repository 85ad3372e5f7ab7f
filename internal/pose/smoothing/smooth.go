package smoothing

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/posetrace/internal/pose"
)

// Smooth filters a single series with a Savitzky-Golay kernel. The
// result always has the input's length. A series shorter than the
// window is returned unchanged (as a copy).
func Smooth(series []float64, window, order int) ([]float64, error) {
	kernel, err := Coefficients(window, order)
	if err != nil {
		return nil, err
	}
	if len(series) < window {
		out := make([]float64, len(series))
		copy(out, series)
		return out, nil
	}
	return convolve(series, kernel), nil
}

// SmoothSequence filters every joint coordinate channel of seq along the
// frame axis. Absent joints feed zeros into the filter and stay absent in
// the output; visibility is carried over from the input.
//
// A disabled config or a sequence shorter than the window yields a copy
// of seq.
func SmoothSequence(seq pose.Sequence, cfg Config) (pose.Sequence, error) {
	kernel, err := Coefficients(cfg.WindowLength, cfg.PolynomialOrder)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled || len(seq) < cfg.WindowLength {
		return seq.Clone(), nil
	}

	nFrames := len(seq)
	out := make(pose.Sequence, nFrames)
	for f, frame := range seq {
		out[f] = make(pose.Frame, len(frame))
	}

	var g errgroup.Group
	g.SetLimit(workerLimit(cfg.Workers))
	for j := 0; j < seq.JointCount(); j++ {
		g.Go(func() error {
			xs := make([]float64, nFrames)
			ys := make([]float64, nFrames)
			zs := make([]float64, nFrames)
			for f, frame := range seq {
				if lm := frame.At(j); lm.Detected {
					xs[f], ys[f], zs[f] = lm.X, lm.Y, lm.Z
				}
			}
			xs, ys, zs = convolve(xs, kernel), convolve(ys, kernel), convolve(zs, kernel)

			// Each goroutine owns column j of out.
			for f, frame := range seq {
				lm := frame.At(j)
				if !lm.Detected {
					continue
				}
				out[f][j] = pose.Detect(pose.Landmark{
					X:          xs[f],
					Y:          ys[f],
					Z:          zs[f],
					Visibility: lm.Visibility,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SmoothHipTrajectory filters the x and y channels of a hip trajectory.
// Absent samples stay absent.
func SmoothHipTrajectory(traj pose.HipTrajectory, cfg Config) (pose.HipTrajectory, error) {
	kernel, err := Coefficients(cfg.WindowLength, cfg.PolynomialOrder)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled || len(traj) < cfg.WindowLength {
		return traj.Clone(), nil
	}

	xs := make([]float64, len(traj))
	ys := make([]float64, len(traj))
	for i, s := range traj {
		if s.Detected {
			xs[i], ys[i] = s.X, s.Y
		}
	}
	xs, ys = convolve(xs, kernel), convolve(ys, kernel)

	out := make(pose.HipTrajectory, len(traj))
	for i, s := range traj {
		if s.Detected {
			out[i] = pose.HipSample{Point2D: pose.Point2D{X: xs[i], Y: ys[i]}, Detected: true}
		}
	}
	return out, nil
}

func workerLimit(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}
