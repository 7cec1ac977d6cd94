package synchronization

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// globalShutterReadout is the readout time in seconds assumed for global shutter sensors.
const globalShutterReadout = 10e-6

// ErrPointCountMismatch means a frame pair has a different number of points in each frame.
var ErrPointCountMismatch = errors.New("tracked point counts differ between frames")

// readoutTime returns the time in seconds the sensor takes to read one frame top to bottom.
func readoutTime(cp ComputeParams) float64 {
	if cp.GlobalShutter {
		return globalShutterReadout
	}
	ms := cp.FrameReadoutTime
	if ms == 0 {
		ms = 1000 / cp.ScaledFPS / 2
	}
	return ms / 1000
}

// rays are undistorted unit rays of tracked points and the time each was captured in seconds.
type rays struct {
	tsA, tsB     []float64
	raysA, raysB []r3.Vector
}

// correct turns a tracked frame pair into timestamped rays. Rows further down the frame are
// captured later by a fraction of the readout time.
func correct(lens Undistorter, mp matchedPoints, readout float64) (rays, error) {
	if len(mp.from) != len(mp.to) {
		return rays{}, errors.Wrapf(ErrPointCountMismatch, "frame %d has %d points tracked to %d in frame %d",
			mp.fromTimestamp, len(mp.from), len(mp.to), mp.toTimestamp)
	}
	w, h := int(mp.size.Width), int(mp.size.Height)
	tsA, raysA := correctFrame(lens, mp.from, mp.fromTimestamp, w, h, readout)
	tsB, raysB := correctFrame(lens, mp.to, mp.toTimestamp, w, h, readout)
	return rays{tsA: tsA, tsB: tsB, raysA: raysA, raysB: raysB}, nil
}

func correctFrame(lens Undistorter, points []r2.Point, timestamp int64, w, h int, readout float64) ([]float64, []r3.Vector) {
	base := float64(timestamp) / 1e6
	ts := lo.Map(points, func(p r2.Point, _ int) float64 {
		return base + readout*(p.Y/float64(h))
	})
	undistorted := lens.UndistortPoints(points, timestamp, w, h)
	return ts, lo.Map(undistorted, func(p r2.Point, _ int) r3.Vector {
		return r3.Vector{X: p.X, Y: p.Y, Z: 1}.Normalize()
	})
}
