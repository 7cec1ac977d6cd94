package lens

// BrownConrady is the Brown-Conrady model for narrow field lenses:
//
//	x_d = x_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x_u*y_u + p2*(r² + 2*x_u²)
//	y_d = y_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p2*x_u*y_u + p1*(r² + 2*y_u²)
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewBrownConrady takes in a slice of floats that will be passed into the struct in order.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	p, err := fillParameters(inp, 5)
	if err != nil {
		return nil, err
	}
	return &BrownConrady{p[0], p[1], p[2], p[3], p[4]}, nil
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// Distort applies the forward Brown-Conrady model.
func (bc *BrownConrady) Distort(xu, yu float64) (float64, float64) {
	if bc == nil {
		return xu, yu
	}
	r2 := xu*xu + yu*yu
	r4 := r2 * r2
	r6 := r4 * r2
	radDist := 1.0 + bc.RadialK1*r2 + bc.RadialK2*r4 + bc.RadialK3*r6
	xd := xu*radDist + 2.0*bc.TangentialP1*xu*yu + bc.TangentialP2*(r2+2.0*xu*xu)
	yd := yu*radDist + 2.0*bc.TangentialP2*xu*yu + bc.TangentialP1*(r2+2.0*yu*yu)
	return xd, yd
}

// Undistort solves the forward model for the undistorted point with Newton-Raphson iterations,
// starting from the distorted point.
func (bc *BrownConrady) Undistort(xd, yd float64) (float64, float64) {
	if bc == nil {
		return xd, yd
	}

	xu, yu := xd, yd

	const maxIterations = 20
	const tolerance = 1e-10

	for i := 0; i < maxIterations; i++ {
		r2 := xu*xu + yu*yu
		r4 := r2 * r2

		xdEst, ydEst := bc.Distort(xu, yu)
		errX := xdEst - xd
		errY := ydEst - yd
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}

		// J = [[dxd/dxu, dxd/dyu], [dyd/dxu, dyd/dyu]]
		radDist := 1.0 + bc.RadialK1*r2 + bc.RadialK2*r4 + bc.RadialK3*r4*r2
		dRadDistDxu := 2.0 * xu * (bc.RadialK1 + 2.0*bc.RadialK2*r2 + 3.0*bc.RadialK3*r4)
		dRadDistDyu := 2.0 * yu * (bc.RadialK1 + 2.0*bc.RadialK2*r2 + 3.0*bc.RadialK3*r4)

		dxdDxu := radDist + xu*dRadDistDxu + 2.0*bc.TangentialP1*yu + 6.0*bc.TangentialP2*xu
		dxdDyu := xu*dRadDistDyu + 2.0*bc.TangentialP1*xu + 2.0*bc.TangentialP2*yu
		dydDxu := yu*dRadDistDxu + 2.0*bc.TangentialP2*yu + 2.0*bc.TangentialP1*xu
		dydDyu := radDist + yu*dRadDistDyu + 2.0*bc.TangentialP2*xu + 6.0*bc.TangentialP1*yu

		det := dxdDxu*dydDyu - dxdDyu*dydDxu
		if det == 0 {
			break
		}

		xu -= (dydDyu*errX - dxdDyu*errY) / det
		yu -= (-dydDxu*errX + dxdDxu*errY) / det
	}

	return xu, yu
}
