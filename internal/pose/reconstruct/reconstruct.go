// Package reconstruct turns a capture into per-frame renderable poses:
// smoothed landmarks plus the offset that keeps a moving subject centred.
//
// Queries are O(1) and safe to issue while the smoothing config or the
// scale override changes; each query sees one consistent snapshot.
package reconstruct

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/banshee-data/posetrace/internal/monitoring"
	"github.com/banshee-data/posetrace/internal/pose"
	"github.com/banshee-data/posetrace/internal/pose/scale"
	"github.com/banshee-data/posetrace/internal/pose/smoothing"
)

// DefaultScale is used when no override is set and no estimate exists.
const DefaultScale = 6.0

// ErrInvalidScale is returned for non-positive or non-finite scales.
var ErrInvalidScale = errors.New("scale must be a positive finite number")

// ScalePolicy decides between a user override and the estimated scale.
type ScalePolicy string

const (
	// PolicyOverride prefers an explicit override, then the estimate.
	PolicyOverride ScalePolicy = "override"
	// PolicyEstimate prefers the estimate whenever one exists.
	PolicyEstimate ScalePolicy = "estimate"
)

// ParseScalePolicy validates a policy name. The empty string selects
// PolicyOverride.
func ParseScalePolicy(s string) (ScalePolicy, error) {
	switch ScalePolicy(s) {
	case "", PolicyOverride:
		return PolicyOverride, nil
	case PolicyEstimate:
		return PolicyEstimate, nil
	}
	return "", fmt.Errorf("unknown scale policy %q (want %q or %q)", s, PolicyOverride, PolicyEstimate)
}

// Pose is everything a renderer needs for one frame.
type Pose struct {
	Frame     int          `json:"frame"`
	Landmarks pose.Frame   `json:"landmarks"`
	Offset    pose.Point2D `json:"offset"`
}

type options struct {
	smoothing    smoothing.Config
	defaultScale float64
	policy       ScalePolicy
	override     *float64
}

// Option configures New.
type Option func(*options)

// WithSmoothing sets the initial smoothing config.
func WithSmoothing(cfg smoothing.Config) Option {
	return func(o *options) { o.smoothing = cfg }
}

// WithDefaultScale sets the fallback scale.
func WithDefaultScale(v float64) Option {
	return func(o *options) { o.defaultScale = v }
}

// WithScalePolicy sets the override/estimate precedence.
func WithScalePolicy(p ScalePolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithScaleOverride sets an initial user scale.
func WithScaleOverride(v float64) Option {
	return func(o *options) { o.override = &v }
}

type derived struct {
	landmarks pose.Sequence
	hip       pose.HipTrajectory
	cfg       smoothing.Config
}

// Reconstructor answers per-frame render queries for one capture.
type Reconstructor struct {
	capture pose.Capture

	start    pose.Point2D
	hasStart bool

	estimate    scale.Summary
	hasEstimate bool

	defaultScale float64
	policy       ScalePolicy

	smoothed atomic.Pointer[derived]
	// override holds the user scale, nil when unset.
	override atomic.Pointer[float64]
}

// New estimates the scale, fixes the reference hip position and smooths
// the capture. It fails only on an invalid smoothing config, default
// scale or override.
func New(c pose.Capture, opts ...Option) (*Reconstructor, error) {
	o := options{
		smoothing:    smoothing.DefaultConfig(),
		defaultScale: DefaultScale,
		policy:       PolicyOverride,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if !validScale(o.defaultScale) {
		return nil, fmt.Errorf("default scale %v: %w", o.defaultScale, ErrInvalidScale)
	}
	policy, err := ParseScalePolicy(string(o.policy))
	if err != nil {
		return nil, err
	}

	r := &Reconstructor{
		capture:      c,
		defaultScale: o.defaultScale,
		policy:       policy,
	}
	r.start, r.hasStart = c.HipStart()
	r.estimate, r.hasEstimate = scale.Summarize(c.Landmarks3D, c.Landmarks2D)

	if o.override != nil {
		if err := r.SetScaleOverride(*o.override); err != nil {
			return nil, err
		}
	}
	if err := r.Resmooth(o.smoothing); err != nil {
		return nil, err
	}

	if r.hasEstimate {
		monitoring.Logf("movement scale estimated at %.2f from %d frames (hip width)", r.estimate.Scale, r.estimate.Samples)
	} else {
		monitoring.Logf("no frame with both hips detected; movement scale falls back to %.2f", r.Scale())
	}
	return r, nil
}

// Resmooth recomputes the smoothed landmarks and hip trajectory with cfg
// and publishes them atomically. On error the previous result is kept.
func (r *Reconstructor) Resmooth(cfg smoothing.Config) error {
	landmarks, err := smoothing.SmoothSequence(r.capture.Landmarks3D, cfg)
	if err != nil {
		return fmt.Errorf("smooth landmarks: %w", err)
	}
	hip, err := smoothing.SmoothHipTrajectory(r.capture.Hip, cfg)
	if err != nil {
		return fmt.Errorf("smooth hip trajectory: %w", err)
	}
	r.smoothed.Store(&derived{landmarks: landmarks, hip: hip, cfg: cfg})
	monitoring.Debugf("smoothed %d frames (window=%d order=%d enabled=%v)",
		len(landmarks), cfg.WindowLength, cfg.PolynomialOrder, cfg.Enabled)
	return nil
}

// SmoothingConfig returns the config of the current smoothed snapshot.
func (r *Reconstructor) SmoothingConfig() smoothing.Config {
	if d := r.smoothed.Load(); d != nil {
		return d.cfg
	}
	return smoothing.Config{}
}

// FrameCount returns the number of frames in the capture.
func (r *Reconstructor) FrameCount() int {
	return r.capture.FrameCount()
}

// Capture returns the raw capture the reconstructor was built from.
func (r *Reconstructor) Capture() pose.Capture {
	return r.capture
}

// Start returns the reference hip position.
func (r *Reconstructor) Start() (pose.Point2D, bool) {
	return r.start, r.hasStart
}

// Estimate returns the scale estimate summary, if any.
func (r *Reconstructor) Estimate() (scale.Summary, bool) {
	return r.estimate, r.hasEstimate
}

// SetScaleOverride sets a user scale. It does not touch smoothed data.
func (r *Reconstructor) SetScaleOverride(v float64) error {
	if !validScale(v) {
		return fmt.Errorf("scale override %v: %w", v, ErrInvalidScale)
	}
	r.override.Store(&v)
	return nil
}

// ClearScaleOverride removes the user scale.
func (r *Reconstructor) ClearScaleOverride() {
	r.override.Store(nil)
}

// ScaleOverride returns the user scale, if set.
func (r *Reconstructor) ScaleOverride() (float64, bool) {
	if v := r.override.Load(); v != nil {
		return *v, true
	}
	return 0, false
}

// Scale returns the scale in effect under the configured policy.
func (r *Reconstructor) Scale() float64 {
	override, hasOverride := r.ScaleOverride()
	switch {
	case r.policy == PolicyEstimate && r.hasEstimate:
		return r.estimate.Scale
	case hasOverride:
		return override
	case r.hasEstimate:
		return r.estimate.Scale
	}
	return r.defaultScale
}

// RenderLandmarks returns the landmarks to draw for frame f: smoothed when
// a full-length smoothed sequence exists, raw otherwise. ok is false when
// f is out of range.
func (r *Reconstructor) RenderLandmarks(f int) (pose.Frame, bool) {
	raw := r.capture.Landmarks3D
	if f < 0 || f >= len(raw) {
		return nil, false
	}
	if d := r.smoothed.Load(); d != nil && len(d.landmarks) == len(raw) {
		return d.landmarks[f].Clone(), true
	}
	return raw[f].Clone(), true
}

// HipTrajectory returns a copy of the hip trajectory offsets are computed
// from: smoothed when a full-length smoothed trajectory exists, raw
// otherwise.
func (r *Reconstructor) HipTrajectory() pose.HipTrajectory {
	return r.hipTrajectory().Clone()
}

func (r *Reconstructor) hipTrajectory() pose.HipTrajectory {
	if d := r.smoothed.Load(); d != nil && len(d.hip) == len(r.capture.Hip) {
		return d.hip
	}
	return r.capture.Hip
}

// HipOffset returns the negated, scaled displacement of the hip center at
// frame f from the reference start. It is zero when the hip was not
// detected at f, f is out of range, or no start exists.
//
// The start is taken from the raw capture while the displacement uses
// HipTrajectory, which is smoothed when smoothing is enabled. The offset
// at the start frame is therefore exactly zero only without smoothing;
// with smoothing it is the scaled smoothing residual at that frame.
func (r *Reconstructor) HipOffset(f int) pose.Point2D {
	if !r.hasStart {
		return pose.Point2D{}
	}
	s := r.hipTrajectory().At(f)
	if !s.Detected {
		return pose.Point2D{}
	}
	k := r.Scale()
	return pose.Point2D{
		X: (r.start.X - s.X) * k,
		Y: (r.start.Y - s.Y) * k,
	}
}

// Render returns the landmarks and hip offset for frame f.
func (r *Reconstructor) Render(f int) (Pose, bool) {
	lm, ok := r.RenderLandmarks(f)
	if !ok {
		return Pose{}, false
	}
	return Pose{Frame: f, Landmarks: lm, Offset: r.HipOffset(f)}, true
}

// RenderAll renders every frame in order.
func (r *Reconstructor) RenderAll() []Pose {
	out := make([]Pose, 0, r.FrameCount())
	for f := 0; f < r.FrameCount(); f++ {
		p, _ := r.Render(f)
		out = append(out, p)
	}
	return out
}

func validScale(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
