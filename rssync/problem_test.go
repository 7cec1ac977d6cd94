package rssync

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
	"go.viam.com/test"

	"go.viam.com/gyrosync/spatialmath"
)

// newTestProblem builds a 0-2s gyro series sampled every millisecond and four frame pairs at
// 30fps starting at 0.5s, whose rays follow the series delayed by delay seconds.
func newTestProblem(t *testing.T, delay float64) *Problem {
	t.Helper()
	p := NewProblem()
	var timestamps []int64
	var quats []quat.Number
	for us := int64(0); us <= 2000000; us += 1000 {
		s := float64(us) / 1e6
		timestamps = append(timestamps, us)
		quats = append(quats, spatialmath.QuatFromScaledAxis(r3.Vector{
			X: 0.5 * math.Sin(4.4*s),
			Y: 0.3 * math.Cos(3.1*s),
			Z: 0.8 * math.Sin(6.9*s),
		}))
	}
	test.That(t, p.SetGyroQuaternions(timestamps, quats), test.ShouldBeNil)

	dirs := []r3.Vector{{X: 0, Y: 0, Z: 1}, {X: 0.2, Y: 0.1, Z: 1}, {X: -0.3, Y: 0.2, Z: 1}, {X: 0.1, Y: -0.25, Z: 1}, {X: -0.2, Y: -0.2, Z: 1}}
	for k := 0; k < 4; k++ {
		frame := int64(500000 + k*33333)
		tsA := float64(frame) / 1e6
		tsB := tsA + 0.033333
		var as, bs []float64
		var raysA, raysB []r3.Vector
		for _, d := range dirs {
			qa, ok := p.QuaternionAt(tsA - delay)
			test.That(t, ok, test.ShouldBeTrue)
			qb, ok := p.QuaternionAt(tsB - delay)
			test.That(t, ok, test.ShouldBeTrue)
			as = append(as, tsA)
			bs = append(bs, tsB)
			raysA = append(raysA, spatialmath.RotateVector(qa, d.Normalize()))
			raysB = append(raysB, spatialmath.RotateVector(qb, d.Normalize()))
		}
		test.That(t, p.SetTrackResult(frame, as, bs, raysA, raysB), test.ShouldBeNil)
	}
	return p
}

func TestFullSyncRecoversDelay(t *testing.T) {
	p := newTestProblem(t, 0.0213)
	est, ok := p.FullSync(context.Background(), 0, 0, 1000000, 0.003, 0.1, 4)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, est.Delay, test.ShouldAlmostEqual, 0.0213, 1e-4)
	test.That(t, est.Cost, test.ShouldBeLessThan, 1e-4)

	cost, ok := p.Cost(context.Background(), 0.0213, 0, 1000000)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, cost, test.ShouldAlmostEqual, 0, 1e-12)
}

func TestPreSyncGrid(t *testing.T) {
	p := newTestProblem(t, -0.03)
	est, ok := p.PreSync(context.Background(), 0, 0, 1000000, 0.01, 0.1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, est.Delay, test.ShouldAlmostEqual, -0.03, 1e-9)
	test.That(t, est.Cost, test.ShouldAlmostEqual, 0, 1e-9)

	var calls int
	var last float64
	p.OnProgress(func(f float64) bool {
		calls++
		last = f
		return true
	})
	_, ok = p.PreSync(context.Background(), 0, 0, 1000000, 0.01, 0.1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, calls, test.ShouldEqual, 21)
	test.That(t, last, test.ShouldAlmostEqual, 1)
}

func TestSearchAborted(t *testing.T) {
	p := newTestProblem(t, 0.01)
	var calls int
	p.OnProgress(func(float64) bool {
		calls++
		return calls < 5
	})
	_, ok := p.FullSync(context.Background(), 0, 0, 1000000, 0.003, 0.1, 4)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, calls, test.ShouldEqual, 5)

	p.OnProgress(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok = p.FullSync(ctx, 0, 0, 1000000, 0.003, 0.1, 4)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestSearchNoResult(t *testing.T) {
	p := newTestProblem(t, 0)
	ctx := context.Background()

	_, ok := p.PreSync(ctx, 0, 0, 1000000, 0, 0.1)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = p.PreSync(ctx, 0, 0, 1000000, 0.003, -1)
	test.That(t, ok, test.ShouldBeFalse)

	// no tracks keyed in the window
	_, ok = p.PreSync(ctx, 0, 1500000, 1900000, 0.003, 0.1)
	test.That(t, ok, test.ShouldBeFalse)

	// every candidate samples the gyro outside its span
	_, ok = p.PreSync(ctx, 5, 0, 1000000, 0.003, 0.1)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestParallelCostMatchesSerial(t *testing.T) {
	p := newTestProblem(t, 0.015)
	ctx := context.Background()
	serial, ok := p.Cost(ctx, 0.002, 0, 1000000)
	test.That(t, ok, test.ShouldBeTrue)

	old := parallelThreshold
	parallelThreshold = 1
	defer func() { parallelThreshold = old }()
	parallel, ok := p.Cost(ctx, 0.002, 0, 1000000)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, parallel, test.ShouldAlmostEqual, serial, 1e-12)
}

func TestInputValidation(t *testing.T) {
	p := NewProblem()
	err := p.SetGyroQuaternions([]int64{1, 2}, []quat.Number{{Real: 1}})
	test.That(t, errors.Is(err, ErrLengthMismatch), test.ShouldBeTrue)
	err = p.SetGyroQuaternions([]int64{2, 1}, []quat.Number{{Real: 1}, {Real: 1}})
	test.That(t, err, test.ShouldNotBeNil)

	err = p.SetTrackResult(0, []float64{0}, []float64{0}, []r3.Vector{{X: 0, Y: 0, Z: 1}}, nil)
	test.That(t, errors.Is(err, ErrLengthMismatch), test.ShouldBeTrue)

	_, ok := p.QuaternionAt(0)
	test.That(t, ok, test.ShouldBeFalse)
}
