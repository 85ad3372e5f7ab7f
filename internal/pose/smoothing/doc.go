// Package smoothing implements the Savitzky-Golay signal smoother used to
// stabilise landmark trajectories.
//
// Kernels are derived analytically for any valid (window, order) pair and
// applied with edge replication at the sequence boundaries. Multi-channel
// inputs are filtered one scalar channel at a time.
package smoothing
