package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// AngularVelocity contains angular velocity in deg/s across x/y/z axes.
type AngularVelocity r3.Vector

// Radians returns the angular velocity as a rad/s vector.
func (av AngularVelocity) Radians() r3.Vector {
	return r3.Vector{X: DegToRad(av.X), Y: DegToRad(av.Y), Z: DegToRad(av.Z)}
}

// DeltaQuaternion returns the body-frame rotation accumulated by rotating at av for dt seconds.
func (av AngularVelocity) DeltaQuaternion(dt float64) quat.Number {
	return QuatFromScaledAxis(av.Radians().Mul(dt))
}

// Integrate advances orientation q by rotating at av (body frame) for dt seconds.
func (av AngularVelocity) Integrate(q quat.Number, dt float64) quat.Number {
	return Normalize(quat.Mul(q, av.DeltaQuaternion(dt)))
}
