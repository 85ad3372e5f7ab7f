// Package testutil provides shared test fixtures for pose sequences.
//
// The builders here produce synthetic captures with known hip widths and
// hip trajectories so tests across packages can assert exact offsets and
// scales.
package testutil

import "github.com/banshee-data/posetrace/internal/pose"

// HipFrame returns a full-width frame with only the two hip joints
// detected, centred on (cx, cy) and width apart along X.
func HipFrame(cx, cy, width float64) pose.Frame {
	f := make(pose.Frame, pose.NumJoints)
	f[pose.LeftHip] = pose.Detect(pose.Landmark{X: cx + width/2, Y: cy, Visibility: 1})
	f[pose.RightHip] = pose.Detect(pose.Landmark{X: cx - width/2, Y: cy, Visibility: 1})
	return f
}

// BodyFrame returns a frame with every joint detected. Joint j sits at
// (cx + j*0.01, cy, 0) and the hips are width apart around (cx, cy).
func BodyFrame(cx, cy, width float64) pose.Frame {
	f := make(pose.Frame, pose.NumJoints)
	for j := range f {
		f[j] = pose.Detect(pose.Landmark{X: cx + float64(j)*0.01, Y: cy, Visibility: 0.8})
	}
	f[pose.LeftHip] = pose.Detect(pose.Landmark{X: cx + width/2, Y: cy, Visibility: 0.8})
	f[pose.RightHip] = pose.Detect(pose.Landmark{X: cx - width/2, Y: cy, Visibility: 0.8})
	return f
}

// HipPath builds a capture whose image-space hip centre visits each point
// in order. World hips are worldWidth apart and image hips imageWidth
// apart, so the expected scale is worldWidth/imageWidth.
func HipPath(points []pose.Point2D, worldWidth, imageWidth float64) pose.Capture {
	world := make(pose.Sequence, len(points))
	image := make(pose.Sequence, len(points))
	for i, p := range points {
		world[i] = BodyFrame(0, 0, worldWidth)
		image[i] = BodyFrame(p.X, p.Y, imageWidth)
	}
	return pose.NewCapture(world, image, 10)
}

// LinearWalk is HipPath along a straight line from (x0, y) stepping dx
// per frame.
func LinearWalk(frames int, x0, y, dx, worldWidth, imageWidth float64) pose.Capture {
	points := make([]pose.Point2D, frames)
	for i := range points {
		points[i] = pose.Point2D{X: x0 + float64(i)*dx, Y: y}
	}
	return HipPath(points, worldWidth, imageWidth)
}
