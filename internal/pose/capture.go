package pose

// Capture is the complete, immutable result of running the pose model
// over a recording. Landmarks3D and Landmarks2D are frame-aligned; Hip
// is derived from Landmarks2D.
type Capture struct {
	Landmarks3D Sequence
	Landmarks2D Sequence
	Hip         HipTrajectory
	// FPS is the sampling rate the frames were taken at.
	FPS float64
}

// NewCapture builds a Capture and derives its hip trajectory from the
// image-space landmarks.
func NewCapture(world, image Sequence, fps float64) Capture {
	return Capture{
		Landmarks3D: world,
		Landmarks2D: image,
		Hip:         HipCenters(image),
		FPS:         fps,
	}
}

// FrameCount returns the number of frames in the capture.
func (c Capture) FrameCount() int {
	return len(c.Landmarks3D)
}

// HipStart returns the hip center of the first frame in which both hips
// were detected.
func (c Capture) HipStart() (Point2D, bool) {
	return c.Hip.Start()
}
