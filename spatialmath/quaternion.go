package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// QuatFromScaledAxis returns the unit quaternion rotating by |v| radians about v.
func QuatFromScaledAxis(v r3.Vector) quat.Number {
	return R3ToR4(v).ToQuat()
}

// QuaternionAlmostEqual is an equality test for all the float components of a quaternion. Quaternions have double coverage, q == -q, and
// this function will *not* account for this. Use OrientationAlmostEqual unless you're certain this is what you want.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
}

// OrientationAlmostEqual reports whether two unit quaternions describe the same rotation, accounting
// for double coverage.
func OrientationAlmostEqual(a, b quat.Number, tol float64) bool {
	return QuaternionAlmostEqual(a, b, tol) || QuaternionAlmostEqual(a, Flip(b), tol)
}

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// Normalize scales q to unit length. The zero quaternion is returned as the identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// RotateVector applies the rotation q to v, computing q * v * q^-1 for unit q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// Slerp spherically interpolates between unit quaternions q0 and q1 by t in [0, 1], taking the
// shortest arc.
func Slerp(q0, q1 quat.Number, t float64) quat.Number {
	dot := q0.Real*q1.Real + q0.Imag*q1.Imag + q0.Jmag*q1.Jmag + q0.Kmag*q1.Kmag
	if dot < 0 {
		q1 = Flip(q1)
		dot = -dot
	}
	// nearly parallel, fall back to a normalized lerp
	if dot > 0.9995 {
		return Normalize(quat.Add(q0, quat.Scale(t, quat.Sub(q1, q0))))
	}
	theta := math.Acos(dot)
	sinTheta := math.Sin(theta)
	s0 := math.Sin((1-t)*theta) / sinTheta
	s1 := math.Sin(t*theta) / sinTheta
	return quat.Add(quat.Scale(s0, q0), quat.Scale(s1, q1))
}
