package math

import "github.com/go-gl/mathgl/mgl32"

// Mat4FromRows3x4 builds an affine matrix from three rows of four floats
// stored row-major, with an implicit (0, 0, 0, 1) bottom row.
func Mat4FromRows3x4(rows [12]float32) mgl32.Mat4 {
	return mgl32.Mat4FromRows(
		mgl32.Vec4{rows[0], rows[1], rows[2], rows[3]},
		mgl32.Vec4{rows[4], rows[5], rows[6], rows[7]},
		mgl32.Vec4{rows[8], rows[9], rows[10], rows[11]},
		mgl32.Vec4{0, 0, 0, 1},
	)
}

// ComposeTRS returns translate * rotate * scale.
func ComposeTRS(translation mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(translation[0], translation[1], translation[2])
	s := mgl32.Scale3D(scale[0], scale[1], scale[2])
	return t.Mul4(rotation.Mat4()).Mul4(s)
}

// Translation returns the translation column of an affine matrix.
func Translation(m mgl32.Mat4) mgl32.Vec3 {
	return mgl32.Vec3{m[12], m[13], m[14]}
}

// ApproxEqualMat4 reports whether every element of a and b differs by at most eps.
func ApproxEqualMat4(a, b mgl32.Mat4, eps float32) bool {
	for i := range a {
		d := a[i] - b[i]
		if d > eps || d < -eps {
			return false
		}
	}
	return true
}

// ApproxEqualVec3 reports whether every component of a and b differs by at most eps.
func ApproxEqualVec3(a, b mgl32.Vec3, eps float32) bool {
	for i := range a {
		d := a[i] - b[i]
		if d > eps || d < -eps {
			return false
		}
	}
	return true
}

// ApproxEqualQuat reports whether every component of a and b differs by at
// most eps. q and -q are different values here.
func ApproxEqualQuat(a, b mgl32.Quat, eps float32) bool {
	d := a.W - b.W
	return d <= eps && d >= -eps && ApproxEqualVec3(a.V, b.V, eps)
}
