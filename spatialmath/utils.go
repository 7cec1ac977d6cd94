// Package spatialmath contains the rotation math for gyro and camera frames.
package spatialmath

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}
