package synchronization

import (
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/gyrosync/gyro"
)

// flipX is a half turn about the X axis.
var flipX = quat.Number{Imag: 1}

// AdaptQuaternions converts a gyro orientation series into the convention the optimizer
// expects: every sample q becomes the conjugate of q rotated half a turn about X.
func AdaptQuaternions(series gyro.TimeQuat) ([]int64, []quat.Number) {
	timestamps := make([]int64, len(series))
	quats := make([]quat.Number, len(series))
	for i, s := range series {
		timestamps[i] = s.Timestamp
		quats[i] = quat.Conj(quat.Mul(s.Q, flipX))
	}
	return timestamps, quats
}
