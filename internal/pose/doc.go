// Package pose owns the landmark data model shared by the trajectory
// post-processing stages.
//
// Responsibilities: landmark, joint and frame types, the 33-point body
// skeleton topology, and hip-center derivation.
// Key types: Landmark, Joint, Frame, Sequence, HipTrajectory, Capture.
//
// Dependency rule: pose is a leaf. smoothing, scale and reconstruct
// depend on it; it never depends on them. No I/O is allowed here.
package pose
