package smoothing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/posetrace/internal/pose"
)

const tol = 1e-9

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		window  int
		order   int
		wantErr bool
	}{
		{"default", 7, 2, false},
		{"order zero", 3, 0, false},
		{"tight", 5, 3, false},
		{"large", 31, 5, false},
		{"even window", 6, 2, true},
		{"window too small for order", 5, 4, true},
		{"window one", 1, 0, true},
		{"negative order", 5, -1, true},
		{"zero window", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Config{WindowLength: tt.window, PolynomialOrder: tt.order, Enabled: true}.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.window, cfgErr.WindowLength)
			assert.Equal(t, tt.order, cfgErr.PolynomialOrder)
		})
	}
}

func TestCoefficientsKnownTables(t *testing.T) {
	tests := []struct {
		window, order int
		num           []float64
		den           float64
	}{
		{7, 2, []float64{-2, 3, 6, 7, 6, 3, -2}, 21},
		{5, 2, []float64{-3, 12, 17, 12, -3}, 35},
		{9, 4, []float64{15, -55, 30, 135, 179, 135, 30, -55, 15}, 429},
		// Odd orders share the kernel of the even order below them.
		{7, 3, []float64{-2, 3, 6, 7, 6, 3, -2}, 21},
	}
	for _, tt := range tests {
		coeffs, err := Coefficients(tt.window, tt.order)
		require.NoError(t, err)
		require.Len(t, coeffs, tt.window)
		for i := range coeffs {
			assert.InDelta(t, tt.num[i]/tt.den, coeffs[i], tol, "window=%d order=%d i=%d", tt.window, tt.order, i)
		}
	}
}

func TestCoefficientsMovingAverage(t *testing.T) {
	for _, order := range []int{0, 1} {
		coeffs, err := Coefficients(5, order)
		require.NoError(t, err)
		for _, c := range coeffs {
			assert.InDelta(t, 0.2, c, tol)
		}
	}
}

func TestCoefficientsSumToOneAndSymmetric(t *testing.T) {
	for window := 3; window <= 25; window += 2 {
		for order := 0; order <= window-2 && order <= 6; order++ {
			coeffs, err := Coefficients(window, order)
			require.NoError(t, err, "window=%d order=%d", window, order)

			var sum float64
			for i, c := range coeffs {
				sum += c
				assert.InDelta(t, c, coeffs[window-1-i], 1e-8, "window=%d order=%d", window, order)
			}
			assert.InDelta(t, 1.0, sum, 1e-8, "window=%d order=%d", window, order)
		}
	}
}

func TestCoefficientsRejectInvalid(t *testing.T) {
	_, err := Coefficients(4, 2)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSmoothPreservesLength(t *testing.T) {
	series := make([]float64, 50)
	for i := range series {
		series[i] = math.Sin(float64(i) / 3)
	}
	for _, p := range [][2]int{{3, 0}, {5, 2}, {7, 2}, {11, 4}, {21, 3}} {
		out, err := Smooth(series, p[0], p[1])
		require.NoError(t, err)
		assert.Len(t, out, len(series))
	}
}

func TestSmoothConstantSeries(t *testing.T) {
	series := make([]float64, 20)
	for i := range series {
		series[i] = 4.25
	}
	out, err := Smooth(series, 7, 2)
	require.NoError(t, err)
	for i, v := range out {
		assert.InDelta(t, 4.25, v, tol, "i=%d", i)
	}
}

func TestSmoothReproducesPolynomialInInterior(t *testing.T) {
	series := make([]float64, 30)
	for i := range series {
		x := float64(i)
		series[i] = 0.5*x*x - 3*x + 2
	}
	out, err := Smooth(series, 7, 2)
	require.NoError(t, err)
	for i := 3; i < len(series)-3; i++ {
		assert.InDelta(t, series[i], out[i], 1e-7, "i=%d", i)
	}
}

func TestSmoothClampsAtBoundaries(t *testing.T) {
	out, err := Smooth([]float64{3, 6, 9}, 3, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4, 6, 8}, out, tol)
}

func TestSmoothShortSeriesIsIdentity(t *testing.T) {
	in := []float64{1, 5, -2}
	out, err := Smooth(in, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	out[0] = 100
	assert.Equal(t, 1.0, in[0], "short-circuit must not alias the input")
}

func TestSmoothInvalidConfig(t *testing.T) {
	_, err := Smooth([]float64{1, 2, 3}, 2, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Smooth(make([]float64, 100), 5, 4)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func noisySequence(frames, joints int) pose.Sequence {
	seq := make(pose.Sequence, frames)
	for f := range seq {
		frame := make(pose.Frame, joints)
		for j := range frame {
			noise := 0.01 * math.Sin(float64(f*7+j))
			frame[j] = pose.Detect(pose.Landmark{
				X:          float64(j) + noise,
				Y:          float64(f)*0.1 - noise,
				Z:          0.5 + noise,
				Visibility: 0.9,
			})
		}
		seq[f] = frame
	}
	return seq
}

func TestSmoothSequenceKeepsAbsentJointsAbsent(t *testing.T) {
	seq := noisySequence(12, pose.NumJoints)
	seq[5][pose.LeftWrist] = pose.Joint{}

	out, err := SmoothSequence(seq, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, out, len(seq))

	assert.False(t, out[5][pose.LeftWrist].Detected)
	assert.Equal(t, pose.Landmark{}, out[5][pose.LeftWrist].Landmark)
	assert.True(t, out[4][pose.LeftWrist].Detected)
	assert.True(t, out[5][pose.RightWrist].Detected)
	assert.Equal(t, 0.9, out[5][pose.RightWrist].Visibility)
}

func TestSmoothSequenceMatchesChannelSmoothing(t *testing.T) {
	seq := noisySequence(15, 4)
	cfg := DefaultConfig()
	cfg.Workers = 2

	out, err := SmoothSequence(seq, cfg)
	require.NoError(t, err)

	for j := 0; j < 4; j++ {
		ys := make([]float64, len(seq))
		for f := range seq {
			ys[f] = seq[f][j].Y
		}
		want, err := Smooth(ys, cfg.WindowLength, cfg.PolynomialOrder)
		require.NoError(t, err)
		for f := range seq {
			assert.InDelta(t, want[f], out[f][j].Y, tol)
		}
	}
}

func TestSmoothSequenceRaggedFrames(t *testing.T) {
	seq := noisySequence(9, 3)
	seq[2] = seq[2][:1]
	seq[6] = nil

	out, err := SmoothSequence(seq, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, out[2], 1)
	assert.Len(t, out[6], 0)
	assert.True(t, out[3][2].Detected)
}

func TestSmoothSequenceDisabledIsPassthrough(t *testing.T) {
	seq := noisySequence(10, 5)
	cfg := DefaultConfig()
	cfg.Enabled = false

	out, err := SmoothSequence(seq, cfg)
	require.NoError(t, err)
	assert.Equal(t, seq, out)

	again, err := SmoothSequence(out, cfg)
	require.NoError(t, err)
	assert.Equal(t, seq, again)
}

func TestSmoothSequenceShortIsPassthrough(t *testing.T) {
	seq := noisySequence(6, 3)
	out, err := SmoothSequence(seq, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, seq, out)
}

func TestSmoothSequenceInvalidConfig(t *testing.T) {
	_, err := SmoothSequence(noisySequence(10, 2), Config{WindowLength: 8, PolynomialOrder: 2, Enabled: true})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSmoothHipTrajectory(t *testing.T) {
	traj := make(pose.HipTrajectory, 10)
	for i := range traj {
		traj[i] = pose.HipSample{Point2D: pose.Point2D{X: 0.5, Y: 0.25}, Detected: true}
	}
	traj[3] = pose.HipSample{}

	out, err := SmoothHipTrajectory(traj, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, out, 10)
	assert.False(t, out[3].Detected)
	assert.True(t, out[9].Detected)
	assert.InDelta(t, 0.5, out[9].X, tol)
	assert.InDelta(t, 0.25, out[9].Y, tol)
}
