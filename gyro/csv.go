package gyro

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/gyrosync/spatialmath"
)

// ReadCSV parses raw gyroscope samples with columns timestamp_ms, gx, gy, gz (deg/s). A header
// row is skipped when its first field is not numeric.
func ReadCSV(r io.Reader) ([]IMUSample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var samples []IMUSample
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "error reading gyro csv")
		}
		if len(record) < 4 {
			return nil, errors.Errorf("gyro csv line %d: expected 4 columns, got %d", line, len(record))
		}
		var values [4]float64
		for i := range values {
			values[i], err = strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				break
			}
		}
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, errors.Wrapf(err, "gyro csv line %d", line)
		}
		samples = append(samples, IMUSample{
			TimestampMs: values[0],
			Gyro:        spatialmath.AngularVelocity{X: values[1], Y: values[2], Z: values[3]},
		})
	}
	return samples, nil
}
