// Package opticalflow stores per-frame optical flow results: tracked feature points between a
// frame and a later one, keyed by frame timestamp.
package opticalflow

import (
	"sync"

	"github.com/golang/geo/r2"
)

// NextFrame is the flow key for points tracked from a frame to the one right after it.
const NextFrame = 1

// FrameSize is a frame's dimension in pixels.
type FrameSize struct {
	Width  uint32 `json:"w"`
	Height uint32 `json:"h"`
}

// Points are matched pixel coordinates between two frames: From[i] in the frame at
// FromTimestamp was tracked to To[i] in the frame at ToTimestamp. Timestamps are in
// microseconds.
type Points struct {
	FromTimestamp int64
	From          []r2.Point
	ToTimestamp   int64
	To            []r2.Point
}

// Clone returns a deep copy of the points.
func (p Points) Clone() Points {
	return Points{
		FromTimestamp: p.FromTimestamp,
		From:          append([]r2.Point(nil), p.From...),
		ToTimestamp:   p.ToTimestamp,
		To:            append([]r2.Point(nil), p.To...),
	}
}

// FlowStatus describes whether optical flow exists for a frame.
type FlowStatus int

const (
	// FlowNotComputed means the tracker has not produced a result for the frame yet.
	FlowNotComputed FlowStatus = iota
	// FlowEmpty means the tracker ran but found nothing to track.
	FlowEmpty
	// FlowAvailable means tracked points are available.
	FlowAvailable
)

func (s FlowStatus) String() string {
	switch s {
	case FlowNotComputed:
		return "not computed"
	case FlowEmpty:
		return "empty"
	case FlowAvailable:
		return "available"
	default:
		return "unknown"
	}
}

// FrameResult is the analysis result for one frame.
type FrameResult struct {
	Timestamp int64
	FrameSize FrameSize

	mu   sync.RWMutex
	flow map[int]*Points
}

// NewFrameResult returns a result with no optical flow computed yet.
func NewFrameResult(timestamp int64, size FrameSize) *FrameResult {
	return &FrameResult{Timestamp: timestamp, FrameSize: size, flow: map[int]*Points{}}
}

// SetOpticalFlow records the tracker output for key. A nil pts records that tracking ran and
// produced nothing.
func (fr *FrameResult) SetOpticalFlow(key int, pts *Points) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if pts != nil {
		cp := pts.Clone()
		pts = &cp
	}
	fr.flow[key] = pts
}

// OpticalFlow returns a copy of the points tracked under key and their status.
func (fr *FrameResult) OpticalFlow(key int) (Points, FlowStatus) {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	pts, ok := fr.flow[key]
	if !ok {
		return Points{}, FlowNotComputed
	}
	if pts == nil {
		return Points{}, FlowEmpty
	}
	return pts.Clone(), FlowAvailable
}
