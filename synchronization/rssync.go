package synchronization

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/gyrosync/gyro"
	"go.viam.com/gyrosync/logging"
	"go.viam.com/gyrosync/rssync"
)

// Search parameters in milliseconds.
const (
	presyncStep = 3.0
	refineDepth = 4
)

// Calibration constants. Results further than acceptRadius x search_size from the initial
// offset are discarded, and half the readout time is removed from accepted offsets. Both were
// tuned on recorded footage and may need revisiting for other sensors.
const (
	acceptRadius   = 0.9
	readoutBiasFac = 0.5
)

// Optimizer scores candidate delays between gyro orientation and tracked rays.
type Optimizer interface {
	SetGyroQuaternions(timestamps []int64, quats []quat.Number) error
	SetTrackResult(frame int64, tsA, tsB []float64, raysA, raysB []r3.Vector) error
	OnProgress(fn func(float64) bool)
	PreSync(ctx context.Context, initialDelay float64, fromTs, toTs int64, step, radius float64) (rssync.Estimate, bool)
	FullSync(ctx context.Context, initialDelay float64, fromTs, toTs int64, step, radius float64, refineDepth int) (rssync.Estimate, bool)
}

// Offset is the accepted result of one sync window.
type Offset struct {
	// TimestampMs is the window center in milliseconds.
	TimestampMs float64
	// OffsetMs is positive when the gyro lags the video.
	OffsetMs float64
	Cost     float64
}

// OrientationCost is the total cost of an orientation over every sync window.
type OrientationCost struct {
	Orientation gyro.Orientation
	Cost        float64
}

// OrientationGuess is the cheapest orientation and every evaluated candidate in
// gyro.CandidateOrientations order.
type OrientationGuess struct {
	OrientationCost
	Candidates []OrientationCost
}

// FindOffsetsRssync owns one optimizer session loaded with every usable sync window.
type FindOffsetsRssync struct {
	logger        logging.Logger
	optimizer     Optimizer
	sc            *SearchContext
	syncParams    SyncParams
	computeParams ComputeParams
	windows       []window
	readout       float64
}

// NewFindOffsetsRssync collects and corrects the tracked points of every range and loads them,
// together with the current gyro series, into a new optimizer session.
func NewFindOffsetsRssync(
	logger logging.Logger,
	store FrameStore,
	ranges []TimeRange,
	syncParams SyncParams,
	computeParams ComputeParams,
	sc *SearchContext,
) (*FindOffsetsRssync, error) {
	return newFindOffsetsRssync(logger, rssync.NewProblem(), store, ranges, syncParams, computeParams, sc)
}

func newFindOffsetsRssync(
	logger logging.Logger,
	optimizer Optimizer,
	store FrameStore,
	ranges []TimeRange,
	syncParams SyncParams,
	computeParams ComputeParams,
	sc *SearchContext,
) (*FindOffsetsRssync, error) {
	if err := syncParams.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid sync params")
	}
	if err := computeParams.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid compute params")
	}
	fo := &FindOffsetsRssync{
		logger:        logger,
		optimizer:     optimizer,
		sc:            sc,
		syncParams:    syncParams,
		computeParams: computeParams,
		readout:       readoutTime(computeParams),
	}
	fo.windows = collectWindows(logger, store, ranges)
	for _, w := range fo.windows {
		for _, mp := range w.points {
			r, err := correct(computeParams.Lens, mp, fo.readout)
			if err != nil {
				return nil, err
			}
			if err := optimizer.SetTrackResult(mp.fromTimestamp, r.tsA, r.tsB, r.raysA, r.raysB); err != nil {
				return nil, errors.Wrapf(err, "error adding track of frame %d", mp.fromTimestamp)
			}
		}
	}
	if err := fo.loadSharedGyro(); err != nil {
		return nil, err
	}
	optimizer.OnProgress(sc.report)

	if len(fo.windows) > 0 {
		logger.Infow("sync windows collected",
			"windows", len(fo.windows),
			"ranges", len(ranges),
			"from", fo.windows[0].From,
			"to", fo.windows[len(fo.windows)-1].To,
			"readout_ms", fo.readout*1000)
	}
	return fo, nil
}

// loadSharedGyro hands the shared gyro series to the optimizer under the read lock.
func (fo *FindOffsetsRssync) loadSharedGyro() error {
	var err error
	fo.computeParams.Gyro.View(func(s *gyro.Source) {
		err = fo.optimizer.SetGyroQuaternions(AdaptQuaternions(s.Quaternions))
	})
	return errors.Wrap(err, "error loading gyro quaternions")
}

// FullSync searches every window in order and returns the accepted offsets. A cancelled run
// returns the offsets found so far.
func (fo *FindOffsetsRssync) FullSync(ctx context.Context) []Offset {
	fo.sc.startPass(len(fo.windows), false)
	initial := fo.syncParams.initialDelay()
	radius := fo.syncParams.SearchSize
	readoutMs := fo.readout * 1000

	offsets := []Offset{}
	for _, w := range fo.windows {
		if fo.sc.Cancelled() {
			break
		}
		est, ok := fo.optimizer.FullSync(ctx, initial/1000, w.From, w.To, presyncStep/1000, radius/1000, refineDepth)
		fo.sc.windowDone()
		if !ok {
			continue
		}
		delayMs := est.Delay * 1000
		if math.Abs(delayMs-initial) >= acceptRadius*radius {
			fo.logger.Warnw("offset too close to the search boundary, discarding",
				"from", w.From, "to", w.To, "offset_ms", -delayMs, "search_size", radius)
			continue
		}
		offsets = append(offsets, Offset{
			TimestampMs: float64(w.From+w.To) / 2 / 1000,
			OffsetMs:    -delayMs - readoutMs*readoutBiasFac,
			Cost:        est.Cost,
		})
	}
	return offsets
}

// GuessOrient tries every candidate orientation on a private copy of the gyro source and returns
// the one whose quick per window search has the lowest total cost. Ties keep the earlier
// candidate. It reports false when there are no windows or the run was cancelled. The optimizer
// is reloaded with the shared gyro series afterwards.
func (fo *FindOffsetsRssync) GuessOrient(ctx context.Context) (OrientationGuess, bool) {
	if len(fo.windows) == 0 {
		return OrientationGuess{}, false
	}
	defer func() {
		if err := fo.loadSharedGyro(); err != nil {
			fo.logger.Errorw("error restoring gyro quaternions", "error", err)
		}
	}()

	fo.sc.startPass(len(fo.windows), true)
	initial := fo.syncParams.initialDelay() / 1000
	radius := fo.syncParams.SearchSize / 1000
	snapshot := fo.computeParams.Gyro.Snapshot()

	candidates := make([]OrientationCost, 0, len(gyro.CandidateOrientations))
	for i, orientation := range gyro.CandidateOrientations {
		if fo.sc.Cancelled() {
			return OrientationGuess{}, false
		}
		fo.sc.startOrientation(i)
		source := snapshot.Clone()
		source.SetOrientation(orientation)
		source.ApplyTransforms()
		if err := fo.optimizer.SetGyroQuaternions(AdaptQuaternions(source.Quaternions)); err != nil {
			fo.logger.Warnw("skipping orientation", "orientation", orientation.String(), "error", err)
			continue
		}

		var total float64
		for _, w := range fo.windows {
			if est, ok := fo.optimizer.PreSync(ctx, initial, w.From, w.To, presyncStep/1000, radius); ok {
				total += est.Cost
			}
			fo.sc.windowDone()
		}
		if fo.sc.Cancelled() {
			return OrientationGuess{}, false
		}
		fo.logger.Debugw("orientation candidate", "orientation", orientation.String(), "cost", total)
		candidates = append(candidates, OrientationCost{Orientation: orientation, Cost: total})
	}
	if len(candidates) == 0 {
		return OrientationGuess{}, false
	}

	best := lo.MinBy(candidates, func(a, b OrientationCost) bool { return a.Cost < b.Cost })
	return OrientationGuess{OrientationCost: best, Candidates: candidates}, true
}
