package math

import "github.com/go-gl/mathgl/mgl32"

// Nlerp interpolates between two rotations component-wise and renormalizes.
// b is negated first when the pair lies on opposite hemispheres so the
// shorter arc is taken. t is in range [0, 1].
func Nlerp(a, b mgl32.Quat, t float32) mgl32.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	q := mgl32.Quat{
		W: a.W + t*(b.W-a.W),
		V: LerpVec3(a.V, b.V, t),
	}
	return q.Normalize()
}
