package lens

import "math"

// KannalaBrandt is the equidistant fisheye model (OpenCV fisheye):
//
//	θ   = atan(r)
//	θ_d = θ * (1 + k1*θ² + k2*θ⁴ + k3*θ⁶ + k4*θ⁸)
//	x_d = x * θ_d / r
type KannalaBrandt struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	K3 float64 `json:"k3"`
	K4 float64 `json:"k4"`
}

// NewKannalaBrandt takes in a slice of up to four coefficients.
func NewKannalaBrandt(inp []float64) (*KannalaBrandt, error) {
	p, err := fillParameters(inp, 4)
	if err != nil {
		return nil, err
	}
	return &KannalaBrandt{p[0], p[1], p[2], p[3]}, nil
}

// CheckValid checks if the fields for KannalaBrandt have valid inputs.
func (kb *KannalaBrandt) CheckValid() error {
	if kb == nil {
		return InvalidDistortionError("KannalaBrandt shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (kb *KannalaBrandt) ModelType() DistortionType {
	return KannalaBrandtDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (kb *KannalaBrandt) Parameters() []float64 {
	if kb == nil {
		return []float64{}
	}
	return []float64{kb.K1, kb.K2, kb.K3, kb.K4}
}

func (kb *KannalaBrandt) thetaD(theta float64) float64 {
	t2 := theta * theta
	t4 := t2 * t2
	return theta * (1 + kb.K1*t2 + kb.K2*t4 + kb.K3*t4*t2 + kb.K4*t4*t4)
}

// Distort applies the forward fisheye model.
func (kb *KannalaBrandt) Distort(x, y float64) (float64, float64) {
	if kb == nil {
		return x, y
	}
	r := math.Hypot(x, y)
	if r < 1e-12 {
		return x, y
	}
	scale := kb.thetaD(math.Atan(r)) / r
	return x * scale, y * scale
}

// Undistort recovers θ from θ_d with Newton iterations and rescales the point by tan(θ)/θ_d.
// Points that do not map to a ray in front of the camera are returned unchanged.
func (kb *KannalaBrandt) Undistort(xd, yd float64) (float64, float64) {
	if kb == nil {
		return xd, yd
	}
	rd := math.Hypot(xd, yd)
	if rd < 1e-12 {
		return xd, yd
	}

	const maxIterations = 10
	const tolerance = 1e-10

	theta := math.Min(rd, math.Pi/2)
	for i := 0; i < maxIterations; i++ {
		t2 := theta * theta
		t4 := t2 * t2
		t6 := t4 * t2
		t8 := t4 * t4
		f := theta*(1+kb.K1*t2+kb.K2*t4+kb.K3*t6+kb.K4*t8) - rd
		df := 1 + 3*kb.K1*t2 + 5*kb.K2*t4 + 7*kb.K3*t6 + 9*kb.K4*t8
		if df == 0 {
			break
		}
		step := f / df
		theta -= step
		if math.Abs(step) < tolerance {
			break
		}
	}

	if theta <= 0 || theta >= math.Pi/2 || math.IsNaN(theta) {
		return xd, yd
	}
	scale := math.Tan(theta) / rd
	return xd * scale, yd * scale
}
