// Package xform holds the Transform value exchanged with viewport gizmos and
// stored in transform literals.
//
// Rotation is kept as a unit quaternion so that repeated edits never hit a
// gimbal singularity. XYZ Euler angles (radians) are only produced or
// consumed at the API boundary: New, Rotation and SetRotation. The Euler
// convention matches an intrinsic X, then Y, then Z composition, i.e. the
// quaternion is qx(a) * qy(b) * qz(c).
package xform
