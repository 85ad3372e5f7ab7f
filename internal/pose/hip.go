package pose

// Point2D is a position in normalized image coordinates, or a 2D offset.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HipSample is the hip center for one frame, absent when either hip
// joint was not detected.
type HipSample struct {
	Point2D
	Detected bool
}

// HipTrajectory holds one HipSample per frame.
type HipTrajectory []HipSample

// HipCenter returns the midpoint of the left and right hip joints of a
// frame. ok is false unless both were detected.
func HipCenter(f Frame) (c Point2D, ok bool) {
	l, r := f.At(LeftHip), f.At(RightHip)
	if !l.Detected || !r.Detected {
		return Point2D{}, false
	}
	return Point2D{X: (l.X + r.X) / 2, Y: (l.Y + r.Y) / 2}, true
}

// HipCenters derives the hip trajectory of an image-space sequence.
func HipCenters(seq Sequence) HipTrajectory {
	traj := make(HipTrajectory, len(seq))
	for i, f := range seq {
		if c, ok := HipCenter(f); ok {
			traj[i] = HipSample{Point2D: c, Detected: true}
		}
	}
	return traj
}

// Start returns the first detected hip center of the trajectory.
func (t HipTrajectory) Start() (Point2D, bool) {
	for _, s := range t {
		if s.Detected {
			return s.Point2D, true
		}
	}
	return Point2D{}, false
}

// At returns the sample at frame i, absent when i is out of range.
func (t HipTrajectory) At(i int) HipSample {
	if i < 0 || i >= len(t) {
		return HipSample{}
	}
	return t[i]
}

// Clone returns an independent copy of the trajectory.
func (t HipTrajectory) Clone() HipTrajectory {
	if t == nil {
		return nil
	}
	out := make(HipTrajectory, len(t))
	copy(out, t)
	return out
}
