package smoothing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Coefficients returns the symmetric Savitzky-Golay smoothing kernel for
// the given window length and polynomial order.
//
// The kernel h is the minimum-norm solution of Aᵀh = e₀, where
// A[i][k] = xᵢ^k over the window positions. Any h satisfying the
// constraints reproduces polynomials up to the given order exactly; the
// minimum-norm one is the least-squares fit evaluated at the centre.
// Positions are scaled to [-1, 1] to keep A well conditioned; the
// constraint set, and so h, does not change under that scaling.
func Coefficients(window, order int) ([]float64, error) {
	if err := validate(window, order); err != nil {
		return nil, err
	}

	half := window / 2
	a := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		x := float64(i-half) / float64(half)
		p := 1.0
		for k := 0; k <= order; k++ {
			a.Set(i, k, p)
			p *= x
		}
	}

	var qr mat.QR
	qr.Factorize(a)

	e0 := mat.NewVecDense(order+1, nil)
	e0.SetVec(0, 1)

	var h mat.VecDense
	if err := qr.SolveVecTo(&h, true, e0); err != nil {
		return nil, fmt.Errorf("solve savitzky-golay kernel (window=%d, order=%d): %w", window, order, err)
	}

	coeffs := make([]float64, window)
	for i := range coeffs {
		coeffs[i] = h.AtVec(i)
	}
	return coeffs, nil
}

// convolve applies kernel centred on every sample. Indices outside the
// series are clamped to the nearest end sample.
func convolve(series, kernel []float64) []float64 {
	n := len(series)
	half := len(kernel) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var acc float64
		for j := -half; j <= half; j++ {
			idx := i + j
			if idx < 0 {
				idx = 0
			} else if idx >= n {
				idx = n - 1
			}
			acc += series[idx] * kernel[j+half]
		}
		out[i] = acc
	}
	return out
}
