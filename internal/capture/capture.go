// Package capture collects per-frame pose model output into an immutable
// pose.Capture. It owns the frame sampling policy and the pose file
// format; the processing packages only ever see the finished capture.
package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/posetrace/internal/monitoring"
	"github.com/banshee-data/posetrace/internal/pose"
)

// DefaultFPS is the sampling rate used when a file or caller gives none.
const DefaultFPS = 10.0

// ErrNoFrames is returned when a pose file contains no frames.
var ErrNoFrames = errors.New("capture has no frames")

// File is the on-disk pose file.
type File struct {
	FPS    float64     `json:"fps,omitempty"`
	Frames []FileFrame `json:"frames"`
}

// FileFrame is one sampled frame. Empty landmark arrays mean the model
// found nobody in that frame.
type FileFrame struct {
	Time           float64    `json:"time"`
	WorldLandmarks pose.Frame `json:"world_landmarks,omitempty"`
	ImageLandmarks pose.Frame `json:"image_landmarks,omitempty"`
}

// Load reads a pose file from disk.
func Load(path string) (pose.Capture, error) {
	return LoadWithFPS(path, DefaultFPS)
}

// LoadWithFPS reads a pose file from disk, using fallback as the sampling
// rate when the file records none.
func LoadWithFPS(path string, fallback float64) (pose.Capture, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return pose.Capture{}, fmt.Errorf("open pose file: %w", err)
	}
	defer f.Close()

	c, err := DecodeWithFPS(f, fallback)
	if err != nil {
		return pose.Capture{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Decode parses a pose file.
func Decode(r io.Reader) (pose.Capture, error) {
	return DecodeWithFPS(r, DefaultFPS)
}

// DecodeWithFPS parses a pose file. A missing or invalid fps in the file
// selects fallback, and an invalid fallback selects DefaultFPS.
func DecodeWithFPS(r io.Reader, fallback float64) (pose.Capture, error) {
	var file File
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return pose.Capture{}, fmt.Errorf("decode pose file: %w", err)
	}
	if len(file.Frames) == 0 {
		return pose.Capture{}, ErrNoFrames
	}

	fps := file.FPS
	if !validFPS(fps) {
		fps = fallback
	}
	b := NewBuilder(fps)
	for _, fr := range file.Frames {
		b.Add(fr.WorldLandmarks, fr.ImageLandmarks)
	}
	c := b.Build()
	monitoring.Debugf("decoded %d frames at %.1f fps", c.FrameCount(), c.FPS)
	return c, nil
}

// Encode writes a capture in the pose file format. Frame times are the
// capture's sampling instants.
func Encode(w io.Writer, c pose.Capture) error {
	n := c.FrameCount()
	times := SampleTimes(frameTime(n, c.FPS), c.FPS)
	if len(times) != n {
		return fmt.Errorf("encode pose file: invalid fps %v", c.FPS)
	}
	file := File{FPS: c.FPS, Frames: make([]FileFrame, n)}
	for i := range file.Frames {
		ff := FileFrame{Time: times[i].Seconds(), WorldLandmarks: c.Landmarks3D[i]}
		if i < len(c.Landmarks2D) {
			ff.ImageLandmarks = c.Landmarks2D[i]
		}
		if ff.WorldLandmarks.DetectedCount() == 0 {
			ff.WorldLandmarks = nil
		}
		if ff.ImageLandmarks.DetectedCount() == 0 {
			ff.ImageLandmarks = nil
		}
		file.Frames[i] = ff
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("encode pose file: %w", err)
	}
	return nil
}

// Builder accumulates sampled frames. It is not safe for concurrent use.
type Builder struct {
	fps   float64
	world pose.Sequence
	image pose.Sequence
}

// NewBuilder returns a builder for frames sampled at fps. A non-positive
// or non-finite fps selects DefaultFPS.
func NewBuilder(fps float64) *Builder {
	if !validFPS(fps) {
		fps = DefaultFPS
	}
	return &Builder{fps: fps}
}

// Add appends one frame. A nil or empty frame records a frame in which
// nothing was detected, so the sequence stays uniformly spaced.
func (b *Builder) Add(world, image pose.Frame) {
	b.world = append(b.world, normalize(world))
	b.image = append(b.image, normalize(image))
}

// Len returns the number of frames added so far.
func (b *Builder) Len() int {
	return len(b.world)
}

// Build returns an independent capture of everything added so far.
func (b *Builder) Build() pose.Capture {
	return pose.NewCapture(b.world.Clone(), b.image.Clone(), b.fps)
}

// normalize pads a frame to the full skeleton width with absent joints.
func normalize(f pose.Frame) pose.Frame {
	n := max(len(f), pose.NumJoints)
	out := make(pose.Frame, n)
	copy(out, f)
	return out
}

// SampleTimes returns the sampling instants for a clip of the given
// duration: 0, 1/fps, 2/fps, ... strictly below duration.
func SampleTimes(duration time.Duration, fps float64) []time.Duration {
	if duration <= 0 || !validFPS(fps) {
		return nil
	}
	var out []time.Duration
	for i := 0; ; i++ {
		t := frameTime(i, fps)
		if t >= duration {
			return out
		}
		out = append(out, t)
	}
}

// frameTime is the sampling instant of frame i.
func frameTime(i int, fps float64) time.Duration {
	return time.Duration(float64(i) / fps * float64(time.Second))
}

func validFPS(fps float64) bool {
	return fps > 0 && !math.IsInf(fps, 0)
}
