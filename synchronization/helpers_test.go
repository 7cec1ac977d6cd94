package synchronization

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
	"go.viam.com/test"

	"go.viam.com/gyrosync/gyro"
	"go.viam.com/gyrosync/lens"
	"go.viam.com/gyrosync/opticalflow"
	"go.viam.com/gyrosync/rssync"
	"go.viam.com/gyrosync/spatialmath"
)

const (
	frameStep   = 33333
	frameWidth  = 1920
	frameHeight = 1080
)

// testSamples is three seconds of 1kHz gyro data with a different motion on every axis.
func testSamples() []gyro.IMUSample {
	samples := make([]gyro.IMUSample, 0, 3001)
	for i := 0; i <= 3000; i++ {
		s := float64(i) / 1000
		samples = append(samples, gyro.IMUSample{
			TimestampMs: float64(i),
			Gyro: spatialmath.AngularVelocity{
				X: 60 * math.Sin(2*math.Pi*0.8*s),
				Y: 45 * math.Sin(2*math.Pi*1.3*s+0.5),
				Z: 50 * math.Cos(2*math.Pi*0.6*s),
			},
		})
	}
	return samples
}

func testProfile(t *testing.T) *lens.Profile {
	t.Helper()
	distortion, err := lens.NewDistorter(lens.KannalaBrandtDistortionType, []float64{0, 0, 0, 0})
	test.That(t, err, test.ShouldBeNil)
	return &lens.Profile{
		Name: "test",
		Intrinsics: &lens.PinholeCameraIntrinsics{
			Width: frameWidth, Height: frameHeight, Fx: 1000, Fy: 1000, Ppx: 960, Ppy: 540,
		},
		Distortion:       distortion,
		FrameReadoutTime: 25,
		GlobalShutter:    true,
	}
}

// motion renders what a camera moving like source sees, with the gyro running offsetMs ahead
// of the video. Every point is sampled at the instant its row is read out.
type motion struct {
	t        *testing.T
	profile  *lens.Profile
	gyro     *rssync.Problem
	offsetMs float64
	readout  float64
}

func newMotion(t *testing.T, source *gyro.Source, profile *lens.Profile, offsetMs float64) *motion {
	t.Helper()
	p := rssync.NewProblem()
	test.That(t, p.SetGyroQuaternions(AdaptQuaternions(source.Quaternions)), test.ShouldBeNil)
	readout := profile.FrameReadoutTime / 1000
	if profile.GlobalShutter {
		readout = globalShutterReadout
	}
	return &motion{t: t, profile: profile, gyro: p, offsetMs: offsetMs, readout: readout}
}

func (m *motion) orientation(t float64) quat.Number {
	q, ok := m.gyro.QuaternionAt(t + m.offsetMs/1000)
	test.That(m.t, ok, test.ShouldBeTrue)
	return q
}

// project returns the pixels of the world directions seen by the frame captured at us. A row's
// capture time depends on the row the point lands on, so it is found by fixed point iteration.
func (m *motion) project(us int64, dirs []r3.Vector) []r2.Point {
	base := float64(us) / 1e6
	pixels := make([]r2.Point, len(dirs))
	for i, d := range dirs {
		row := frameHeight / 2.0
		for iter := 0; iter < 8; iter++ {
			ray := spatialmath.RotateVector(m.orientation(base+m.readout*row/frameHeight), d)
			normalized := []r2.Point{{X: ray.X / ray.Z, Y: ray.Y / ray.Z}}
			pixels[i] = m.profile.DistortPoints(normalized, frameWidth, frameHeight)[0]
			row = pixels[i].Y
		}
	}
	return pixels
}

// addRange inserts frames tracked to their next frame, starting at fromUs. The tracked world
// directions are in front of the camera at the first frame.
func (m *motion) addRange(store *opticalflow.Store, fromUs int64, frames int) {
	view := []r3.Vector{
		{X: 0, Y: 0, Z: 1}, {X: 0.3, Y: 0.2, Z: 1}, {X: -0.3, Y: 0.25, Z: 1}, {X: 0.35, Y: -0.2, Z: 1},
		{X: -0.25, Y: -0.3, Z: 1}, {X: 0.1, Y: 0.4, Z: 1}, {X: -0.4, Y: 0.05, Z: 1}, {X: 0.05, Y: -0.4, Z: 1},
	}
	start := quat.Conj(m.orientation(float64(fromUs) / 1e6))
	dirs := make([]r3.Vector, len(view))
	for i, v := range view {
		dirs[i] = spatialmath.RotateVector(start, v.Normalize())
	}
	for k := 0; k < frames; k++ {
		ts := fromUs + int64(k*frameStep)
		fr := opticalflow.NewFrameResult(ts, opticalflow.FrameSize{Width: frameWidth, Height: frameHeight})
		fr.SetOpticalFlow(opticalflow.NextFrame, &opticalflow.Points{
			FromTimestamp: ts,
			From:          m.project(ts, dirs),
			ToTimestamp:   ts + frameStep,
			To:            m.project(ts+frameStep, dirs),
		})
		store.Insert(fr)
	}
}
