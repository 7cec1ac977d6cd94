package synchronization

import (
	"context"

	"go.viam.com/gyrosync/logging"
)

// FindOffsets returns the gyro offset of every sync window in ranges that has enough tracked
// frames and a trustworthy result, in range order. progress, which may be nil, receives the
// fraction of the run done. Cancelling ctx stops the run and returns the offsets found so far
// without an error; only invalid parameters and inconsistent tracking data are errors.
func FindOffsets(
	ctx context.Context,
	logger logging.Logger,
	store FrameStore,
	ranges []TimeRange,
	syncParams SyncParams,
	computeParams ComputeParams,
	progress func(float64),
) ([]Offset, error) {
	if ctx.Err() != nil {
		return []Offset{}, nil
	}
	sc := NewSearchContext(ctx, progress)
	fo, err := NewFindOffsetsRssync(logger, store, ranges, syncParams, computeParams, sc)
	if err != nil {
		return nil, err
	}
	return fo.FullSync(ctx), nil
}

// GuessOrientation finds the gyro mounting orientation that best explains the tracked motion in
// ranges. It reports false when no range has enough data or ctx was cancelled.
func GuessOrientation(
	ctx context.Context,
	logger logging.Logger,
	store FrameStore,
	ranges []TimeRange,
	syncParams SyncParams,
	computeParams ComputeParams,
	progress func(float64),
) (OrientationGuess, bool, error) {
	if ctx.Err() != nil {
		return OrientationGuess{}, false, nil
	}
	sc := NewSearchContext(ctx, progress)
	fo, err := NewFindOffsetsRssync(logger, store, ranges, syncParams, computeParams, sc)
	if err != nil {
		return OrientationGuess{}, false, err
	}
	guess, ok := fo.GuessOrient(ctx)
	return guess, ok, nil
}
