package synchronization

import (
	"context"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/gyrosync/rssync"
)

type searchCall struct {
	initialDelay float64
	fromTs, toTs int64
	step, radius float64
	refineDepth  int
}

type searchResult struct {
	est rssync.Estimate
	ok  bool
}

// fakeOptimizer answers searches from a fixed list, one result per call, and records the calls.
type fakeOptimizer struct {
	results  []searchResult
	calls    []searchCall
	tracks   []int64
	quats    int
	progress func(float64) bool
}

func (f *fakeOptimizer) SetGyroQuaternions(timestamps []int64, quats []quat.Number) error {
	f.quats++
	return nil
}

func (f *fakeOptimizer) SetTrackResult(frame int64, tsA, tsB []float64, raysA, raysB []r3.Vector) error {
	f.tracks = append(f.tracks, frame)
	return nil
}

func (f *fakeOptimizer) OnProgress(fn func(float64) bool) {
	f.progress = fn
}

func (f *fakeOptimizer) next(call searchCall) (rssync.Estimate, bool) {
	f.calls = append(f.calls, call)
	if len(f.results) == 0 {
		return rssync.Estimate{}, false
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.est, r.ok
}

func (f *fakeOptimizer) PreSync(
	ctx context.Context, initialDelay float64, fromTs, toTs int64, step, radius float64,
) (rssync.Estimate, bool) {
	return f.next(searchCall{initialDelay, fromTs, toTs, step, radius, 0})
}

func (f *fakeOptimizer) FullSync(
	ctx context.Context, initialDelay float64, fromTs, toTs int64, step, radius float64, refineDepth int,
) (rssync.Estimate, bool) {
	return f.next(searchCall{initialDelay, fromTs, toTs, step, radius, refineDepth})
}
