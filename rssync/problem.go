// Package rssync estimates the time offset between a gyroscope orientation series and camera
// motion observed as pairs of tracked rays. The cost of a candidate delay is the rotation
// residual between rays of consecutive frames after rotating the earlier ray by the gyro's
// relative rotation over the same interval.
package rssync

import (
	"context"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/gyrosync/spatialmath"
	"go.viam.com/gyrosync/utils"
)

// refineSteps is the number of candidates evaluated per refinement level.
const refineSteps = 9

// parallelThreshold is the correspondence count above which the cost is evaluated in parallel.
var parallelThreshold = 4096

// ErrLengthMismatch is returned when parallel inputs have different lengths.
var ErrLengthMismatch = errors.New("input lengths differ")

// Estimate is the best delay found by a search and its cost. Delay is in seconds; the gyro is
// sampled at t - Delay for a ray captured at t.
type Estimate struct {
	Cost  float64
	Delay float64
}

type correspondence struct {
	tsA, tsB   float64
	rayA, rayB r3.Vector
}

// Problem is one offset search session. It is not safe for concurrent use.
type Problem struct {
	timestamps []int64
	quats      []quat.Number

	tracks   map[int64][]correspondence
	progress func(float64) bool
}

// NewProblem returns an empty session.
func NewProblem() *Problem {
	return &Problem{tracks: map[int64][]correspondence{}}
}

// SetGyroQuaternions replaces the gyro orientation series. Timestamps are in microseconds and
// must be increasing.
func (p *Problem) SetGyroQuaternions(timestamps []int64, quats []quat.Number) error {
	if len(timestamps) != len(quats) {
		return errors.Wrapf(ErrLengthMismatch, "%d timestamps and %d quaternions", len(timestamps), len(quats))
	}
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i] <= timestamps[i-1] {
			return errors.Errorf("gyro timestamps not increasing at index %d", i)
		}
	}
	p.timestamps = append(p.timestamps[:0], timestamps...)
	p.quats = append(p.quats[:0], quats...)
	return nil
}

// SetTrackResult records the rays tracked from one frame to the next. frame is the
// microsecond timestamp the track is keyed by; per ray timestamps are in seconds.
func (p *Problem) SetTrackResult(frame int64, tsA, tsB []float64, raysA, raysB []r3.Vector) error {
	n := len(tsA)
	if len(tsB) != n || len(raysA) != n || len(raysB) != n {
		return errors.Wrapf(ErrLengthMismatch, "track %d has %d/%d timestamps and %d/%d rays",
			frame, len(tsA), len(tsB), len(raysA), len(raysB))
	}
	corrs := make([]correspondence, n)
	for i := range corrs {
		corrs[i] = correspondence{tsA: tsA[i], tsB: tsB[i], rayA: raysA[i], rayB: raysB[i]}
	}
	p.tracks[frame] = corrs
	return nil
}

// OnProgress installs the callback invoked after every cost evaluation of a search with the
// fraction of the search done. Returning false aborts the search.
func (p *Problem) OnProgress(fn func(float64) bool) {
	p.progress = fn
}

// QuaternionAt interpolates the gyro orientation at t seconds.
func (p *Problem) QuaternionAt(t float64) (quat.Number, bool) {
	n := len(p.timestamps)
	us := t * 1e6
	if n == 0 || us < float64(p.timestamps[0]) || us > float64(p.timestamps[n-1]) {
		return quat.Number{}, false
	}
	i := sort.Search(n, func(i int) bool { return float64(p.timestamps[i]) >= us })
	if i == 0 || float64(p.timestamps[i]) == us {
		return p.quats[i], true
	}
	t0, t1 := float64(p.timestamps[i-1]), float64(p.timestamps[i])
	return spatialmath.Slerp(p.quats[i-1], p.quats[i], (us-t0)/(t1-t0)), true
}

// window flattens the tracks keyed within [fromTs, toTs] in key order.
func (p *Problem) window(fromTs, toTs int64) []correspondence {
	keys := make([]int64, 0, len(p.tracks))
	for k := range p.tracks {
		if k >= fromTs && k <= toTs {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	var out []correspondence
	for _, k := range keys {
		out = append(out, p.tracks[k]...)
	}
	return out
}

// residual is the squared distance between rayB and rayA rotated by the gyro motion between
// their capture times.
func (p *Problem) residual(c correspondence, delay float64) (float64, bool) {
	qa, ok := p.QuaternionAt(c.tsA - delay)
	if !ok {
		return 0, false
	}
	qb, ok := p.QuaternionAt(c.tsB - delay)
	if !ok {
		return 0, false
	}
	predicted := spatialmath.RotateVector(quat.Mul(qb, quat.Conj(qa)), c.rayA)
	return c.rayB.Sub(predicted).Norm2(), true
}

func (p *Problem) evaluate(ctx context.Context, corrs []correspondence, delay float64) (float64, bool) {
	var sum float64
	var valid int
	if len(corrs) <= parallelThreshold {
		for _, c := range corrs {
			if r, ok := p.residual(c, delay); ok {
				sum += r
				valid++
			}
		}
	} else {
		var sums []float64
		var counts []int
		err := utils.GroupWorkParallel(ctx, len(corrs),
			func(numGroups int) {
				sums = make([]float64, numGroups)
				counts = make([]int, numGroups)
			},
			func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
				return func(memberNum, workNum int) {
					if r, ok := p.residual(corrs[workNum], delay); ok {
						sums[groupNum] += r
						counts[groupNum]++
					}
				}, nil
			})
		if err != nil {
			return 0, false
		}
		for i := range sums {
			sum += sums[i]
			valid += counts[i]
		}
	}
	if valid == 0 {
		return 0, false
	}
	return sum / float64(valid) * float64(len(corrs)), true
}

// Cost evaluates one delay (seconds) over the tracks keyed within [fromTs, toTs].
func (p *Problem) Cost(ctx context.Context, delay float64, fromTs, toTs int64) (float64, bool) {
	return p.evaluate(ctx, p.window(fromTs, toTs), delay)
}

// PreSync scans delays from initialDelay-radius to initialDelay+radius every step seconds and
// returns the cheapest. It reports false when no delay could be evaluated or the search was
// aborted.
func (p *Problem) PreSync(ctx context.Context, initialDelay float64, fromTs, toTs int64, step, radius float64) (Estimate, bool) {
	return p.search(ctx, initialDelay, fromTs, toTs, step, radius, 0)
}

// FullSync runs PreSync and then refines the estimate refineDepth times, each level searching
// around the best delay so far with the previous step as radius and a quarter of it as step.
func (p *Problem) FullSync(ctx context.Context, initialDelay float64, fromTs, toTs int64, step, radius float64, refineDepth int) (Estimate, bool) {
	return p.search(ctx, initialDelay, fromTs, toTs, step, radius, refineDepth)
}

func (p *Problem) search(ctx context.Context, initialDelay float64, fromTs, toTs int64, step, radius float64, refineDepth int) (Estimate, bool) {
	if !(step > 0) || !(radius > 0) || refineDepth < 0 {
		return Estimate{}, false
	}
	corrs := p.window(fromTs, toTs)
	if len(corrs) == 0 {
		return Estimate{}, false
	}

	coarse := []float64{initialDelay}
	if n := int(2*radius/step+1e-9) + 1; n > 1 {
		coarse = floats.Span(make([]float64, n), initialDelay-radius, initialDelay-radius+step*float64(n-1))
	}
	total := float64(len(coarse) + refineDepth*refineSteps)
	done := 0
	best := Estimate{Cost: math.Inf(1)}
	found := false

	scan := func(delays []float64) bool {
		for _, d := range delays {
			if ctx.Err() != nil {
				return false
			}
			c, ok := p.evaluate(ctx, corrs, d)
			if ok && c < best.Cost {
				best = Estimate{Cost: c, Delay: d}
				found = true
			}
			done++
			if p.progress != nil && !p.progress(float64(done)/total) {
				return false
			}
		}
		return true
	}

	if !scan(coarse) {
		return Estimate{}, false
	}
	for level := 0; level < refineDepth && found; level++ {
		radius = step
		step /= 4
		if !scan(floats.Span(make([]float64, refineSteps), best.Delay-radius, best.Delay+radius)) {
			return Estimate{}, false
		}
	}
	return best, found
}
