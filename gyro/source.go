// Package gyro holds gyroscope data: raw IMU samples, the mounting orientation transform and the
// integrated orientation series the synchronizer matches against camera motion.
package gyro

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/gyrosync/spatialmath"
)

// IMUSample is one raw gyroscope reading in sensor axes.
type IMUSample struct {
	TimestampMs float64
	Gyro        spatialmath.AngularVelocity
}

// Transforms are the corrections applied to raw samples before integration.
type Transforms struct {
	Orientation Orientation
}

// Source owns raw gyroscope samples and the orientation series integrated from them.
type Source struct {
	raw         []IMUSample
	Transforms  Transforms
	Quaternions TimeQuat
}

// NewSource sorts a copy of samples by time and integrates them with the identity orientation.
func NewSource(samples []IMUSample) *Source {
	raw := make([]IMUSample, len(samples))
	copy(raw, samples)
	sort.SliceStable(raw, func(i, j int) bool { return raw[i].TimestampMs < raw[j].TimestampMs })

	s := &Source{raw: raw, Transforms: Transforms{Orientation: IdentityOrientation}}
	s.ApplyTransforms()
	return s
}

// SetOrientation changes the mounting orientation. ApplyTransforms must be called for the
// quaternion series to reflect it.
func (s *Source) SetOrientation(o Orientation) {
	s.Transforms.Orientation = o
}

// ApplyTransforms rebuilds Quaternions from the raw samples: every sample is remapped into camera
// axes and the angular velocity is integrated with the trapezoidal rule, starting from the
// identity at the first sample.
func (s *Source) ApplyTransforms() {
	if len(s.raw) == 0 {
		s.Quaternions = nil
		return
	}
	o := s.Transforms.Orientation
	quats := make(TimeQuat, 0, len(s.raw))
	q := quat.Number{Real: 1}
	quats = append(quats, TimedQuat{Timestamp: usFromMs(s.raw[0].TimestampMs), Q: q})

	prev := o.Apply(r3FromAngularVelocity(s.raw[0].Gyro))
	for i := 1; i < len(s.raw); i++ {
		cur := o.Apply(r3FromAngularVelocity(s.raw[i].Gyro))
		dt := (s.raw[i].TimestampMs - s.raw[i-1].TimestampMs) / 1000
		ts := usFromMs(s.raw[i].TimestampMs)
		if ts == quats[len(quats)-1].Timestamp {
			prev = cur
			continue
		}
		avg := spatialmath.AngularVelocity(prev.Add(cur).Mul(0.5))
		q = avg.Integrate(q, dt)
		quats = append(quats, TimedQuat{Timestamp: ts, Q: q})
		prev = cur
	}
	s.Quaternions = quats
}

// Clone returns a deep copy that shares no mutable state with s.
func (s *Source) Clone() *Source {
	raw := make([]IMUSample, len(s.raw))
	copy(raw, s.raw)
	return &Source{
		raw:         raw,
		Transforms:  s.Transforms,
		Quaternions: s.Quaternions.Clone(),
	}
}

func usFromMs(ms float64) int64 {
	return int64(math.Round(ms * 1000))
}

func r3FromAngularVelocity(av spatialmath.AngularVelocity) r3.Vector {
	return r3.Vector(av)
}
