// Package scale estimates the factor that converts normalized image-space
// displacement into world-space displacement, using hip width as the
// reference bone.
package scale

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/posetrace/internal/pose"
)

// MinImageDistance is the smallest 2D hip width that yields a ratio.
// Narrower projections (subject side-on to the camera) are skipped.
const MinImageDistance = 1e-4

// Summary describes the per-frame hip-width ratios behind an estimate.
type Summary struct {
	// Scale is the median ratio.
	Scale   float64 `json:"scale"`
	Samples int     `json:"samples"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
}

// Ratios returns world hip width divided by image hip width for every
// frame where both hips were detected in both sequences.
func Ratios(world, image pose.Sequence) []float64 {
	n := min(len(world), len(image))
	ratios := make([]float64, 0, n)
	for f := 0; f < n; f++ {
		lw, rw := world[f].At(pose.LeftHip), world[f].At(pose.RightHip)
		li, ri := image[f].At(pose.LeftHip), image[f].At(pose.RightHip)
		if !lw.Detected || !rw.Detected || !li.Detected || !ri.Detected {
			continue
		}
		d2 := pose.Distance2D(li.Landmark, ri.Landmark)
		if d2 <= MinImageDistance {
			continue
		}
		ratios = append(ratios, pose.Distance3D(lw.Landmark, rw.Landmark)/d2)
	}
	return ratios
}

// Estimate returns the median hip-width ratio. ok is false when no frame
// contributed a ratio.
func Estimate(world, image pose.Sequence) (scale float64, ok bool) {
	return median(Ratios(world, image))
}

// Summarize is Estimate plus the spread of the underlying ratios.
func Summarize(world, image pose.Sequence) (Summary, bool) {
	ratios := Ratios(world, image)
	m, ok := median(ratios)
	if !ok {
		return Summary{}, false
	}
	mean, std := stat.MeanStdDev(ratios, nil)
	if len(ratios) < 2 {
		std = 0
	}
	return Summary{
		Scale:   m,
		Samples: len(ratios),
		Min:     floats.Min(ratios),
		Max:     floats.Max(ratios),
		Mean:    mean,
		StdDev:  std,
	}, true
}

// median returns the element at n/2 of the sorted values, which is the
// upper median for an even count.
func median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2], true
}
