package synchronization

import (
	"github.com/golang/geo/r2"

	"go.viam.com/gyrosync/logging"
	"go.viam.com/gyrosync/opticalflow"
)

// FrameStore is the read side of the optical flow results.
type FrameStore interface {
	Range(from, to int64, fn func(*opticalflow.FrameResult))
}

// matchedPoints are the points tracked from one frame to the next.
type matchedPoints struct {
	fromTimestamp int64
	from          []r2.Point
	toTimestamp   int64
	to            []r2.Point
	size          opticalflow.FrameSize
}

// collectPoints returns the tracked frame pairs inside rng in timestamp order. Frames without
// next-frame flow are skipped.
func collectPoints(store FrameStore, rng TimeRange) []matchedPoints {
	if rng.To <= rng.From {
		return nil
	}
	var out []matchedPoints
	store.Range(rng.From, rng.To, func(fr *opticalflow.FrameResult) {
		pts, status := fr.OpticalFlow(opticalflow.NextFrame)
		if status != opticalflow.FlowAvailable {
			return
		}
		out = append(out, matchedPoints{
			fromTimestamp: pts.FromTimestamp,
			from:          pts.From,
			toTimestamp:   pts.ToTimestamp,
			to:            pts.To,
			size:          fr.FrameSize,
		})
	})
	return out
}

// window is a sync window with enough tracked frames to search. Its TimeRange runs from the
// first tracked frame to the frame the last pair was tracked to, which may be narrower than the
// requested range.
type window struct {
	TimeRange
	points []matchedPoints
}

// collectWindows collects every range and drops the ones with fewer than two tracked frames.
func collectWindows(logger logging.Logger, store FrameStore, ranges []TimeRange) []window {
	windows := make([]window, 0, len(ranges))
	for _, rng := range ranges {
		points := collectPoints(store, rng)
		if len(points) < 2 {
			logger.Warnw("not enough tracked frames in range, skipping", "from", rng.From, "to", rng.To, "frames", len(points))
			continue
		}
		span := TimeRange{From: points[0].fromTimestamp, To: points[len(points)-1].toTimestamp}
		windows = append(windows, window{TimeRange: span, points: points})
	}
	return windows
}
