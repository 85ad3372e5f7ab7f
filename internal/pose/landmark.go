package pose

import (
	"bytes"
	"encoding/json"
	"math"
)

// Landmark is one body joint observation. For image-space (2D) landmarks
// X and Y are normalized image coordinates and Z is ignored.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	// Visibility is the model's confidence in [0,1]; zero when not reported.
	Visibility float64 `json:"visibility,omitempty"`
}

// Distance3D returns the Euclidean distance between two landmarks.
func Distance3D(a, b Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Distance2D returns the Euclidean distance between the image-plane
// projections of two landmarks.
func Distance2D(a, b Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Joint is one skeleton slot in a frame: either a detected Landmark or
// absent. The zero value is absent.
type Joint struct {
	Landmark
	Detected bool
}

// Detect wraps a landmark as a detected joint.
func Detect(l Landmark) Joint {
	return Joint{Landmark: l, Detected: true}
}

// MarshalJSON encodes an absent joint as null.
func (j Joint) MarshalJSON() ([]byte, error) {
	if !j.Detected {
		return []byte("null"), nil
	}
	return json.Marshal(j.Landmark)
}

// UnmarshalJSON decodes null as an absent joint.
func (j *Joint) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*j = Joint{}
		return nil
	}
	var l Landmark
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}
	*j = Detect(l)
	return nil
}

// Frame holds one joint per skeleton index.
type Frame []Joint

// At returns the joint at index i, or an absent joint when i is outside
// the frame.
func (f Frame) At(i int) Joint {
	if i < 0 || i >= len(f) {
		return Joint{}
	}
	return f[i]
}

// DetectedCount returns how many joints in the frame were detected.
func (f Frame) DetectedCount() int {
	n := 0
	for _, j := range f {
		if j.Detected {
			n++
		}
	}
	return n
}

// Clone returns an independent copy of the frame.
func (f Frame) Clone() Frame {
	if f == nil {
		return nil
	}
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

// Sequence is an ordered, uniformly sampled series of frames.
type Sequence []Frame

// JointCount returns the width of the widest frame.
func (s Sequence) JointCount() int {
	n := 0
	for _, f := range s {
		if len(f) > n {
			n = len(f)
		}
	}
	return n
}

// Clone returns a deep copy of the sequence.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	for i, f := range s {
		out[i] = f.Clone()
	}
	return out
}
