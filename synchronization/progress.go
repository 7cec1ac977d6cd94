package synchronization

import (
	"context"

	"go.uber.org/atomic"

	"go.viam.com/gyrosync/gyro"
)

// SearchContext carries progress reporting and cancellation through a sync run. Progress may be
// read from another goroutine while the run advances it.
type SearchContext struct {
	sink      func(float64)
	cancelled func() bool

	numWindows     atomic.Int32
	curWindow      atomic.Int32
	curOrientation atomic.Int32
	guessing       atomic.Bool
}

// NewSearchContext reports progress in [0, 1] to sink, which may be nil, and stops the run once
// ctx is done.
func NewSearchContext(ctx context.Context, sink func(float64)) *SearchContext {
	return &SearchContext{
		sink:      sink,
		cancelled: func() bool { return ctx.Err() != nil },
	}
}

// Cancelled reports whether the run should stop.
func (sc *SearchContext) Cancelled() bool {
	return sc.cancelled()
}

// Progress returns the fraction of the run done, where windowProgress is the fraction of the
// current window done.
func (sc *SearchContext) Progress(windowProgress float64) float64 {
	n := sc.numWindows.Load()
	if n <= 0 {
		return 0
	}
	orientations := 1.0
	if sc.guessing.Load() {
		orientations = float64(len(gyro.CandidateOrientations))
	}
	p := (float64(sc.curOrientation.Load()) + (float64(sc.curWindow.Load())+windowProgress)/float64(n)) / orientations
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// report forwards optimizer progress within the current window and tells it whether to go on.
func (sc *SearchContext) report(windowProgress float64) bool {
	if sc.sink != nil {
		sc.sink(sc.Progress(windowProgress))
	}
	return !sc.Cancelled()
}

func (sc *SearchContext) startPass(numWindows int, guessing bool) {
	sc.numWindows.Store(int32(numWindows))
	sc.curWindow.Store(0)
	sc.curOrientation.Store(0)
	sc.guessing.Store(guessing)
}

func (sc *SearchContext) startOrientation(i int) {
	sc.curOrientation.Store(int32(i))
	sc.curWindow.Store(0)
}

func (sc *SearchContext) windowDone() {
	sc.curWindow.Inc()
	if sc.sink != nil {
		sc.sink(sc.Progress(0))
	}
}
