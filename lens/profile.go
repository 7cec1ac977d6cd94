package lens

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Profile is a calibrated lens: intrinsics at the calibration resolution, a distortion model
// and the sensor shutter characteristics.
type Profile struct {
	Name       string
	Intrinsics *PinholeCameraIntrinsics
	Distortion Distorter
	// FrameReadoutTime is the rolling shutter readout time of one frame in milliseconds. Zero
	// means unknown.
	FrameReadoutTime float64
	GlobalShutter    bool
}

// CheckValid reports every problem with the profile.
func (p *Profile) CheckValid() error {
	if p == nil {
		return errors.New("lens profile not provided")
	}
	var err error
	err = multierr.Append(err, p.Intrinsics.CheckValid())
	if p.Distortion == nil {
		err = multierr.Append(err, InvalidDistortionError("no distortion model"))
	} else {
		err = multierr.Append(err, p.Distortion.CheckValid())
	}
	if p.FrameReadoutTime < 0 {
		err = multierr.Append(err, errors.Errorf("frame_readout_time must not be negative, got %v", p.FrameReadoutTime))
	}
	return err
}

// UndistortPoints maps pixels of a width x height frame to undistorted normalized image
// coordinates. The timestamp selects the lens state for lenses that change during a clip;
// static profiles ignore it.
func (p *Profile) UndistortPoints(points []r2.Point, timestamp int64, width, height int) []r2.Point {
	intrinsics := p.Intrinsics.Scaled(width, height)
	out := make([]r2.Point, len(points))
	for i, pt := range points {
		x, y := intrinsics.PixelToNormalized(pt.X, pt.Y)
		x, y = p.Distortion.Undistort(x, y)
		out[i] = r2.Point{X: x, Y: y}
	}
	return out
}

// DistortPoints is the inverse of UndistortPoints: normalized coordinates to pixels of a
// width x height frame.
func (p *Profile) DistortPoints(points []r2.Point, width, height int) []r2.Point {
	intrinsics := p.Intrinsics.Scaled(width, height)
	out := make([]r2.Point, len(points))
	for i, pt := range points {
		x, y := p.Distortion.Distort(pt.X, pt.Y)
		u, v := intrinsics.NormalizedToPixel(x, y)
		out[i] = r2.Point{X: u, Y: v}
	}
	return out
}

// profileJSON is the on-disk lens profile layout.
type profileJSON struct {
	Name           string `json:"name"`
	CalibDimension struct {
		W int `json:"w"`
		H int `json:"h"`
	} `json:"calib_dimension"`
	DistortionModel string `json:"distortion_model"`
	FisheyeParams   struct {
		CameraMatrix     [][]float64 `json:"camera_matrix"`
		DistortionCoeffs []float64   `json:"distortion_coeffs"`
	} `json:"fisheye_params"`
	FrameReadoutTime float64 `json:"frame_readout_time"`
	GlobalShutter    bool    `json:"global_shutter"`
}

func distortionTypeFromModel(model string) (DistortionType, error) {
	switch model {
	case "", "opencv_fisheye", string(KannalaBrandtDistortionType):
		return KannalaBrandtDistortionType, nil
	case "opencv_standard", string(BrownConradyDistortionType):
		return BrownConradyDistortionType, nil
	default:
		return "", errors.Errorf("unsupported distortion_model %q", model)
	}
}

// UnmarshalJSON parses a lens profile file.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw profileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cm := raw.FisheyeParams.CameraMatrix
	if len(cm) != 3 || len(cm[0]) != 3 || len(cm[1]) != 3 {
		return errors.Errorf("camera_matrix must be 3x3, got %v", cm)
	}
	distortionType, err := distortionTypeFromModel(raw.DistortionModel)
	if err != nil {
		return err
	}
	distortion, err := NewDistorter(distortionType, raw.FisheyeParams.DistortionCoeffs)
	if err != nil {
		return err
	}

	*p = Profile{
		Name: raw.Name,
		Intrinsics: &PinholeCameraIntrinsics{
			Width:  raw.CalibDimension.W,
			Height: raw.CalibDimension.H,
			Fx:     cm[0][0],
			Fy:     cm[1][1],
			Ppx:    cm[0][2],
			Ppy:    cm[1][2],
		},
		Distortion:       distortion,
		FrameReadoutTime: raw.FrameReadoutTime,
		GlobalShutter:    raw.GlobalShutter,
	}
	return nil
}

// ReadProfile reads and validates a lens profile JSON file.
func ReadProfile(path string) (*Profile, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading lens profile")
	}
	p := &Profile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, errors.Wrapf(err, "error parsing lens profile %q", path)
	}
	if err := p.CheckValid(); err != nil {
		return nil, errors.Wrapf(err, "invalid lens profile %q", path)
	}
	return p, nil
}
