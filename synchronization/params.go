// Package synchronization finds the time offset between a gyroscope and a video by matching the
// rotation the gyro reports with the rotation observed in tracked optical flow, and optionally
// finds the gyro's mounting orientation.
package synchronization

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/gyrosync/gyro"
	"go.viam.com/gyrosync/lens"
)

// TimeRange is a half-open [From, To) span of frame timestamps in microseconds. Each range is
// one sync window.
type TimeRange struct {
	From int64 `json:"from" yaml:"from"`
	To   int64 `json:"to" yaml:"to"`
}

// SyncParams configure the offset search.
type SyncParams struct {
	// InitialOffset is the expected gyro offset in milliseconds.
	InitialOffset float64 `json:"initial_offset" yaml:"initial_offset"`
	// InitialOffsetInv means InitialOffset is already expressed as a search delay and is used
	// without inverting its sign.
	InitialOffsetInv bool `json:"initial_offset_inv" yaml:"initial_offset_inv"`
	// SearchSize is the half-width of the searched offsets around InitialOffset in milliseconds.
	SearchSize float64 `json:"search_size" yaml:"search_size"`
}

// Validate reports every invalid field.
func (sp SyncParams) Validate() error {
	var err error
	if math.IsNaN(sp.InitialOffset) || math.IsInf(sp.InitialOffset, 0) {
		err = multierr.Append(err, errors.Errorf("initial_offset must be finite, got %v", sp.InitialOffset))
	}
	if !(sp.SearchSize > 0) || math.IsInf(sp.SearchSize, 0) {
		err = multierr.Append(err, errors.Errorf("search_size must be positive, got %v", sp.SearchSize))
	}
	return err
}

// initialDelay is the search center in milliseconds.
func (sp SyncParams) initialDelay() float64 {
	if sp.InitialOffsetInv {
		return sp.InitialOffset
	}
	return -sp.InitialOffset
}

// Undistorter maps pixels of a width x height frame to undistorted normalized image coordinates.
type Undistorter interface {
	UndistortPoints(points []r2.Point, timestamp int64, width, height int) []r2.Point
}

// ComputeParams describe the recording being synchronized.
type ComputeParams struct {
	Gyro *gyro.Shared
	Lens Undistorter
	// GlobalShutter means every row of a frame is exposed at once.
	GlobalShutter bool
	// ScaledFPS is the frame rate of the analyzed video.
	ScaledFPS float64
	// FrameReadoutTime is the rolling shutter readout time in milliseconds. Zero derives it from
	// ScaledFPS.
	FrameReadoutTime float64
}

// NewComputeParams takes the lens and shutter parameters from a lens profile.
func NewComputeParams(g *gyro.Shared, profile *lens.Profile, scaledFPS float64) ComputeParams {
	return ComputeParams{
		Gyro:             g,
		Lens:             profile,
		GlobalShutter:    profile.GlobalShutter,
		ScaledFPS:        scaledFPS,
		FrameReadoutTime: profile.FrameReadoutTime,
	}
}

// Validate reports every invalid field.
func (cp ComputeParams) Validate() error {
	var err error
	if cp.Gyro == nil {
		err = multierr.Append(err, errors.New("gyro source not provided"))
	}
	if cp.Lens == nil {
		err = multierr.Append(err, errors.New("lens not provided"))
	}
	if cp.FrameReadoutTime < 0 {
		err = multierr.Append(err, errors.Errorf("frame_readout_time must not be negative, got %v", cp.FrameReadoutTime))
	}
	if !cp.GlobalShutter && cp.FrameReadoutTime == 0 && !(cp.ScaledFPS > 0) {
		err = multierr.Append(err, errors.Errorf("scaled fps must be positive to derive the readout time, got %v", cp.ScaledFPS))
	}
	return err
}
