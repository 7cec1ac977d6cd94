package opticalflow

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

type pointsJSON struct {
	FromTimestamp int64        `json:"from_ts"`
	From          [][2]float64 `json:"from"`
	ToTimestamp   int64        `json:"to_ts"`
	To            [][2]float64 `json:"to"`
}

type frameJSON struct {
	Timestamp   int64                  `json:"timestamp_us"`
	FrameSize   FrameSize              `json:"frame_size"`
	OpticalFlow map[string]*pointsJSON `json:"optical_flow"`
}

type datasetJSON struct {
	Frames []frameJSON `json:"frames"`
}

func toPoints(in [][2]float64) []r2.Point {
	out := make([]r2.Point, len(in))
	for i, p := range in {
		out[i] = r2.Point{X: p[0], Y: p[1]}
	}
	return out
}

// ReadDataset decodes a JSON optical flow dataset of the form
//
//	{"frames": [{"timestamp_us": 0, "frame_size": {"w": 1920, "h": 1080},
//	  "optical_flow": {"1": {"from_ts": 0, "from": [[x, y]], "to_ts": 33333, "to": [[x, y]]}}}]}
//
// into a store. A null flow entry records a frame the tracker ran on without results.
func ReadDataset(r io.Reader) (*Store, error) {
	var raw datasetJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "error parsing optical flow dataset")
	}
	store := NewStore()
	for _, f := range raw.Frames {
		fr := NewFrameResult(f.Timestamp, f.FrameSize)
		for key, pj := range f.OpticalFlow {
			k, err := strconv.Atoi(key)
			if err != nil {
				return nil, errors.Wrapf(err, "frame %d: invalid optical flow key", f.Timestamp)
			}
			if pj == nil {
				fr.SetOpticalFlow(k, nil)
				continue
			}
			fr.SetOpticalFlow(k, &Points{
				FromTimestamp: pj.FromTimestamp,
				From:          toPoints(pj.From),
				ToTimestamp:   pj.ToTimestamp,
				To:            toPoints(pj.To),
			})
		}
		store.Insert(fr)
	}
	return store, nil
}
