// Package lens models camera intrinsics and lens distortion, and maps tracked pixels to
// undistorted normalized image coordinates.
package lens

import "github.com/pkg/errors"

// DistortionType is the name of the distortion model.
type DistortionType string

const (
	// BrownConradyDistortionType is for simple lenses of narrow field easily modeled as a pinhole camera.
	BrownConradyDistortionType = DistortionType("brown_conrady")
	// KannalaBrandtDistortionType is for wide-angle and fisheye lense distortion.
	KannalaBrandtDistortionType = DistortionType("kannala_brandt")
)

// Distorter maps between undistorted and distorted normalized image coordinates.
type Distorter interface {
	ModelType() DistortionType
	CheckValid() error
	Parameters() []float64
	// Distort applies the model to an undistorted normalized point.
	Distort(x, y float64) (float64, float64)
	// Undistort inverts Distort.
	Undistort(x, y float64) (float64, float64)
}

// InvalidDistortionError is used when the distortion_parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrap(errors.New("invalid distortion_parameters"), msg)
}

// NewDistorter returns a Distorter given a valid DistortionType and its parameters.
func NewDistorter(distortionType DistortionType, parameters []float64) (Distorter, error) {
	switch distortionType {
	case BrownConradyDistortionType:
		return NewBrownConrady(parameters)
	case KannalaBrandtDistortionType:
		return NewKannalaBrandt(parameters)
	default:
		return nil, errors.Errorf("do not know how to parse %q distortion model", distortionType)
	}
}

// fillParameters pads inp with zeros up to n values.
func fillParameters(inp []float64, n int) ([]float64, error) {
	if len(inp) > n {
		return nil, errors.Errorf("list of parameters too long, expected max %d, got %d", n, len(inp))
	}
	out := make([]float64, n)
	copy(out, inp)
	return out, nil
}
