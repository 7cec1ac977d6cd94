package lens

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

const goproProfile = `{
	"name": "GoPro HERO9 Wide 4:3",
	"calib_dimension": {"w": 4000, "h": 3000},
	"distortion_model": "opencv_fisheye",
	"fisheye_params": {
		"camera_matrix": [[1800.0, 0.0, 2000.0], [0.0, 1790.0, 1500.0], [0.0, 0.0, 1.0]],
		"distortion_coeffs": [0.05, 0.01, -0.004, 0.001]
	},
	"frame_readout_time": 15.2,
	"global_shutter": false
}`

func TestBrownConradyRoundTrip(t *testing.T) {
	bc, err := NewBrownConrady([]float64{-0.2, 0.05, 0.001, 0.0005, -0.0003})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bc.CheckValid(), test.ShouldBeNil)
	test.That(t, bc.ModelType(), test.ShouldEqual, BrownConradyDistortionType)

	for _, pt := range []r2.Point{{X: 0, Y: 0}, {X: 0.1, Y: -0.2}, {X: -0.3, Y: 0.25}, {X: 0.4, Y: 0.1}} {
		xd, yd := bc.Distort(pt.X, pt.Y)
		xu, yu := bc.Undistort(xd, yd)
		test.That(t, xu, test.ShouldAlmostEqual, pt.X, 1e-8)
		test.That(t, yu, test.ShouldAlmostEqual, pt.Y, 1e-8)
	}

	_, err = NewBrownConrady([]float64{1, 2, 3, 4, 5, 6})
	test.That(t, err, test.ShouldNotBeNil)

	var nilBC *BrownConrady
	test.That(t, nilBC.CheckValid(), test.ShouldNotBeNil)
	test.That(t, nilBC.Parameters(), test.ShouldHaveLength, 0)
}

func TestKannalaBrandtRoundTrip(t *testing.T) {
	kb, err := NewKannalaBrandt([]float64{0.05, 0.01, -0.004})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kb.Parameters(), test.ShouldResemble, []float64{0.05, 0.01, -0.004, 0})

	for _, pt := range []r2.Point{{X: 0, Y: 0}, {X: 0.2, Y: -0.1}, {X: -0.8, Y: 0.6}, {X: 1.2, Y: 0.3}} {
		xd, yd := kb.Distort(pt.X, pt.Y)
		xu, yu := kb.Undistort(xd, yd)
		test.That(t, xu, test.ShouldAlmostEqual, pt.X, 1e-8)
		test.That(t, yu, test.ShouldAlmostEqual, pt.Y, 1e-8)
	}
}

func TestKannalaBrandtUndistortFieldOfView(t *testing.T) {
	kb, err := NewKannalaBrandt(nil)
	test.That(t, err, test.ShouldBeNil)

	for _, pt := range []r2.Point{{X: 2, Y: 0}, {X: 0, Y: -3}, {X: 1.2, Y: 1.2}, {X: math.Pi / 2, Y: 0}} {
		xu, yu := kb.Undistort(pt.X, pt.Y)
		test.That(t, xu, test.ShouldEqual, pt.X)
		test.That(t, yu, test.ShouldEqual, pt.Y)
	}

	for _, pt := range []r2.Point{{X: 1.5, Y: 0}, {X: 0, Y: -1.56}, {X: 1.1, Y: 1.1}} {
		xu, yu := kb.Undistort(pt.X, pt.Y)
		test.That(t, math.IsInf(xu, 0) || math.IsNaN(xu), test.ShouldBeFalse)
		test.That(t, math.IsInf(yu, 0) || math.IsNaN(yu), test.ShouldBeFalse)
		test.That(t, math.Hypot(xu, yu), test.ShouldAlmostEqual, math.Tan(math.Hypot(pt.X, pt.Y)), 1e-6)

		xd, yd := kb.Distort(xu, yu)
		test.That(t, xd, test.ShouldAlmostEqual, pt.X, 1e-8)
		test.That(t, yd, test.ShouldAlmostEqual, pt.Y, 1e-8)
	}
}

func TestNewDistorter(t *testing.T) {
	d, err := NewDistorter(KannalaBrandtDistortionType, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ModelType(), test.ShouldEqual, KannalaBrandtDistortionType)

	_, err = NewDistorter("polynomial", nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "polynomial")
}

func TestIntrinsics(t *testing.T) {
	var missing *PinholeCameraIntrinsics
	test.That(t, errors.Is(missing.CheckValid(), ErrNoIntrinsics), test.ShouldBeTrue)

	bad := &PinholeCameraIntrinsics{Width: 10, Height: 10, Fx: 0, Fy: 1}
	test.That(t, errors.Is(bad.CheckValid(), ErrNoIntrinsics), test.ShouldBeTrue)

	in := &PinholeCameraIntrinsics{Width: 4000, Height: 3000, Fx: 1800, Fy: 1790, Ppx: 2000, Ppy: 1500}
	test.That(t, in.Scaled(4000, 3000), test.ShouldEqual, in)
	half := in.Scaled(2000, 1500)
	test.That(t, half.Fx, test.ShouldAlmostEqual, 900.)
	test.That(t, half.Ppy, test.ShouldAlmostEqual, 750.)

	x, y := half.PixelToNormalized(1900, 1645)
	test.That(t, x, test.ShouldAlmostEqual, 1.)
	test.That(t, y, test.ShouldAlmostEqual, 895./895.)
	u, v := half.NormalizedToPixel(x, y)
	test.That(t, u, test.ShouldAlmostEqual, 1900.)
	test.That(t, v, test.ShouldAlmostEqual, 1645.)
}

func TestProfileJSON(t *testing.T) {
	var p Profile
	test.That(t, json.Unmarshal([]byte(goproProfile), &p), test.ShouldBeNil)
	test.That(t, p.CheckValid(), test.ShouldBeNil)
	test.That(t, p.Name, test.ShouldEqual, "GoPro HERO9 Wide 4:3")
	test.That(t, p.Intrinsics.Width, test.ShouldEqual, 4000)
	test.That(t, p.Intrinsics.Fy, test.ShouldEqual, 1790.)
	test.That(t, p.Distortion.ModelType(), test.ShouldEqual, KannalaBrandtDistortionType)
	test.That(t, p.FrameReadoutTime, test.ShouldEqual, 15.2)
	test.That(t, p.GlobalShutter, test.ShouldBeFalse)

	err := json.Unmarshal([]byte(`{"fisheye_params": {"camera_matrix": [[1, 0]]}}`), &p)
	test.That(t, err, test.ShouldNotBeNil)

	err = json.Unmarshal([]byte(`{"distortion_model": "ptlens", "fisheye_params": {"camera_matrix": [[1,0,0],[0,1,0],[0,0,1]]}}`), &p)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gopro.json")
	test.That(t, os.WriteFile(path, []byte(goproProfile), 0o600), test.ShouldBeNil)

	p, err := ReadProfile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Intrinsics.Ppx, test.ShouldEqual, 2000.)

	_, err = ReadProfile(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	invalid := filepath.Join(dir, "invalid.json")
	test.That(t, os.WriteFile(invalid, []byte(`{"fisheye_params": {"camera_matrix": [[0,0,0],[0,0,0],[0,0,1]]}}`), 0o600),
		test.ShouldBeNil)
	_, err = ReadProfile(invalid)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)
}

func TestUndistortPoints(t *testing.T) {
	var p Profile
	test.That(t, json.Unmarshal([]byte(goproProfile), &p), test.ShouldBeNil)

	normalized := []r2.Point{{X: 0, Y: 0}, {X: 0.3, Y: -0.2}, {X: -0.5, Y: 0.4}}
	pixels := p.DistortPoints(normalized, 1920, 1440)
	test.That(t, pixels[0].X, test.ShouldAlmostEqual, 960.)
	test.That(t, pixels[0].Y, test.ShouldAlmostEqual, 720.)

	back := p.UndistortPoints(pixels, 0, 1920, 1440)
	test.That(t, back, test.ShouldHaveLength, len(normalized))
	for i := range normalized {
		test.That(t, back[i].X, test.ShouldAlmostEqual, normalized[i].X, 1e-8)
		test.That(t, back[i].Y, test.ShouldAlmostEqual, normalized[i].Y, 1e-8)
	}
}
