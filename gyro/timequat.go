package gyro

import (
	"sort"

	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/gyrosync/spatialmath"
)

// TimedQuat is one orientation sample. Timestamp is in microseconds.
type TimedQuat struct {
	Timestamp int64
	Q         quat.Number
}

// TimeQuat is an orientation series ordered by timestamp.
type TimeQuat []TimedQuat

// Span returns the first and last timestamps of the series.
func (tq TimeQuat) Span() (int64, int64, bool) {
	if len(tq) == 0 {
		return 0, 0, false
	}
	return tq[0].Timestamp, tq[len(tq)-1].Timestamp, true
}

// At interpolates the orientation at timestamp us (microseconds). It reports false outside the
// span of the series.
func (tq TimeQuat) At(us float64) (quat.Number, bool) {
	n := len(tq)
	if n == 0 || us < float64(tq[0].Timestamp) || us > float64(tq[n-1].Timestamp) {
		return quat.Number{}, false
	}
	i := sort.Search(n, func(i int) bool { return float64(tq[i].Timestamp) >= us })
	if float64(tq[i].Timestamp) == us || i == 0 {
		return tq[i].Q, true
	}
	prev, next := tq[i-1], tq[i]
	t := (us - float64(prev.Timestamp)) / float64(next.Timestamp-prev.Timestamp)
	return spatialmath.Slerp(prev.Q, next.Q, t), true
}

// Clone returns a deep copy of the series.
func (tq TimeQuat) Clone() TimeQuat {
	if tq == nil {
		return nil
	}
	out := make(TimeQuat, len(tq))
	copy(out, tq)
	return out
}
