// Package report summarizes and plots synchronization results.
package report

import (
	"fmt"
	"io"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/gyrosync/synchronization"
)

// Summary describes the spread of the offsets found in a run.
type Summary struct {
	Windows int
	Median  float64
	Mean    float64
	StdDev  float64
	Min     float64
	Max     float64
}

// Summarize computes offset statistics in milliseconds. It fails for an empty run.
func Summarize(offsets []synchronization.Offset) (Summary, error) {
	if len(offsets) == 0 {
		return Summary{}, errors.New("no offsets to summarize")
	}
	data := make(stats.Float64Data, len(offsets))
	for i, o := range offsets {
		data[i] = o.OffsetMs
	}
	median, err := data.Median()
	if err != nil {
		return Summary{}, err
	}
	mean, err := data.Mean()
	if err != nil {
		return Summary{}, err
	}
	sd, err := data.StandardDeviation()
	if err != nil {
		return Summary{}, err
	}
	lo, err := data.Min()
	if err != nil {
		return Summary{}, err
	}
	hi, err := data.Max()
	if err != nil {
		return Summary{}, err
	}
	return Summary{Windows: len(offsets), Median: median, Mean: mean, StdDev: sd, Min: lo, Max: hi}, nil
}

// WriteTable prints one line per offset.
func WriteTable(w io.Writer, offsets []synchronization.Offset) error {
	if _, err := fmt.Fprintf(w, "%12s %12s %12s\n", "time_ms", "offset_ms", "cost"); err != nil {
		return err
	}
	for _, o := range offsets {
		if _, err := fmt.Fprintf(w, "%12.1f %12.3f %12.6f\n", o.TimestampMs, o.OffsetMs, o.Cost); err != nil {
			return err
		}
	}
	return nil
}

// Plot draws offset against video time.
func Plot(offsets []synchronization.Offset) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "gyro offset"
	p.X.Label.Text = "video time (s)"
	p.Y.Label.Text = "offset (ms)"

	pts := make(plotter.XYs, len(offsets))
	for i, o := range offsets {
		pts[i] = plotter.XY{X: o.TimestampMs / 1000, Y: o.OffsetMs}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create offset line")
	}
	line.Width = vg.Points(1)
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create offset points")
	}
	p.Add(line, scatter, plotter.NewGrid())
	return p, nil
}

// SavePlot writes the plot of offsets to path. The format follows the file extension.
func SavePlot(path string, offsets []synchronization.Offset) error {
	p, err := Plot(offsets)
	if err != nil {
		return err
	}
	return errors.Wrapf(p.Save(10*vg.Inch, 4*vg.Inch, path), "failed to save plot %q", path)
}
