package gyro

import (
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Axis names one of the three sensor axes.
type Axis uint8

// The sensor axes.
const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

var axisNames = [3]byte{'X', 'Y', 'Z'}

// Orientation remaps sensor axes onto camera axes: camera axis i reads sensor axis Order[i]
// multiplied by Sign[i]. Its textual form is three letters, one per camera axis, naming the
// sensor axis used; lower case marks a negated axis ("XYZ" is the identity, "yXz" maps
// (x, y, z) to (-y, x, -z)).
type Orientation struct {
	Order [3]Axis
	Sign  [3]int8
}

// IdentityOrientation leaves sensor axes unchanged.
var IdentityOrientation = Orientation{Order: [3]Axis{AxisX, AxisY, AxisZ}, Sign: [3]int8{+1, +1, +1}}

// String returns the three letter form of the orientation.
func (o Orientation) String() string {
	var sb strings.Builder
	for i := range o.Order {
		c := axisNames[o.Order[i]%3]
		if o.Sign[i] < 0 {
			c += 'a' - 'A'
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// Valid reports whether the orientation is a signed permutation of the sensor axes.
func (o Orientation) Valid() bool {
	var seen [3]bool
	for i := range o.Order {
		if o.Order[i] > AxisZ || seen[o.Order[i]] || (o.Sign[i] != 1 && o.Sign[i] != -1) {
			return false
		}
		seen[o.Order[i]] = true
	}
	return true
}

// Apply maps a sensor-frame vector into the camera frame.
func (o Orientation) Apply(v r3.Vector) r3.Vector {
	in := [3]float64{v.X, v.Y, v.Z}
	var out [3]float64
	for i := range out {
		out[i] = float64(o.Sign[i]) * in[o.Order[i]]
	}
	return r3.Vector{X: out[0], Y: out[1], Z: out[2]}
}

// ParseOrientation parses the three letter form, e.g. "XYZ" or "yXz".
func ParseOrientation(s string) (Orientation, error) {
	if len(s) != 3 {
		return Orientation{}, errors.Errorf("orientation %q must have three letters", s)
	}
	var o Orientation
	for i := 0; i < 3; i++ {
		c := s[i]
		o.Sign[i] = 1
		if c >= 'a' && c <= 'z' {
			o.Sign[i] = -1
			c -= 'a' - 'A'
		}
		switch c {
		case 'X':
			o.Order[i] = AxisX
		case 'Y':
			o.Order[i] = AxisY
		case 'Z':
			o.Order[i] = AxisZ
		default:
			return Orientation{}, errors.Errorf("orientation %q has invalid axis %q", s, s[i])
		}
	}
	if !o.Valid() {
		return Orientation{}, errors.Errorf("orientation %q repeats an axis", s)
	}
	return o, nil
}

// CandidateOrientations is every signed axis permutation, in the order orientation guessing
// visits them.
var CandidateOrientations = [48]Orientation{
	{Order: [3]Axis{AxisY, AxisX, AxisZ}, Sign: [3]int8{+1, -1, +1}}, // YxZ
	{Order: [3]Axis{AxisX, AxisY, AxisZ}, Sign: [3]int8{+1, -1, -1}}, // Xyz
	{Order: [3]Axis{AxisX, AxisZ, AxisY}, Sign: [3]int8{+1, +1, -1}}, // XZy
	{Order: [3]Axis{AxisZ, AxisX, AxisY}, Sign: [3]int8{+1, -1, -1}}, // Zxy
	{Order: [3]Axis{AxisZ, AxisY, AxisX}, Sign: [3]int8{-1, -1, +1}}, // zyX
	{Order: [3]Axis{AxisY, AxisX, AxisZ}, Sign: [3]int8{-1, -1, +1}}, // yxZ
	{Order: [3]Axis{AxisZ, AxisX, AxisY}, Sign: [3]int8{+1, +1, +1}}, // ZXY
	{Order: [3]Axis{AxisZ, AxisY, AxisX}, Sign: [3]int8{-1, +1, -1}}, // zYx
	{Order: [3]Axis{AxisZ, AxisY, AxisX}, Sign: [3]int8{+1, +1, +1}}, // ZYX
	{Order: [3]Axis{AxisY, AxisX, AxisZ}, Sign: [3]int8{-1, +1, -1}}, // yXz
	{Order: [3]Axis{AxisY, AxisZ, AxisX}, Sign: [3]int8{+1, +1, +1}}, // YZX
	{Order: [3]Axis{AxisX, AxisY, AxisZ}, Sign: [3]int8{+1, -1, +1}}, // XyZ
	{Order: [3]Axis{AxisY, AxisZ, AxisX}, Sign: [3]int8{+1, -1, -1}}, // Yzx
	{Order: [3]Axis{AxisZ, AxisX, AxisY}, Sign: [3]int8{-1, +1, -1}}, // zXy
	{Order: [3]Axis{AxisY, AxisX, AxisZ}, Sign: [3]int8{+1, +1, -1}}, // YXz
	{Order: [3]Axis{AxisX, AxisY, AxisZ}, Sign: [3]int8{-1, -1, -1}}, // xyz
	{Order: [3]Axis{AxisY, AxisZ, AxisX}, Sign: [3]int8{-1, +1, -1}}, // yZx
	{Order: [3]Axis{AxisX, AxisY, AxisZ}, Sign: [3]int8{+1, +1, +1}}, // XYZ
	{Order: [3]Axis{AxisZ, AxisX, AxisY}, Sign: [3]int8{-1, -1, -1}}, // zxy
	{Order: [3]Axis{AxisX, AxisY, AxisZ}, Sign: [3]int8{-1, +1, -1}}, // xYz
	{Order: [3]Axis{AxisX, AxisY, AxisZ}, Sign: [3]int8{+1, +1, -1}}, // XYz
	{Order: [3]Axis{AxisZ, AxisX, AxisY}, Sign: [3]int8{-1, -1, +1}}, // zxY
	{Order: [3]Axis{AxisZ, AxisX, AxisY}, Sign: [3]int8{-1, +1, +1}}, // zXY
	{Order: [3]Axis{AxisX, AxisZ, AxisY}, Sign: [3]int8{-1, +1, -1}}, // xZy
	{Order: [3]Axis{AxisZ, AxisY, AxisX}, Sign: [3]int8{-1, -1, -1}}, // zyx
	{Order: [3]Axis{AxisX, AxisY, AxisZ}, Sign: [3]int8{-1, -1, +1}}, // xyZ
	{Order: [3]Axis{AxisY, AxisX, AxisZ}, Sign: [3]int8{+1, -1, -1}}, // Yxz
	{Order: [3]Axis{AxisX, AxisZ, AxisY}, Sign: [3]int8{-1, -1, -1}}, // xzy
	{Order: [3]Axis{AxisY, AxisZ, AxisX}, Sign: [3]int8{-1, +1, +1}}, // yZX
	{Order: [3]Axis{AxisY, AxisZ, AxisX}, Sign: [3]int8{-1, -1, +1}}, // yzX
	{Order: [3]Axis{AxisZ, AxisY, AxisX}, Sign: [3]int8{+1, +1, -1}}, // ZYx
	{Order: [3]Axis{AxisX, AxisY, AxisZ}, Sign: [3]int8{-1, +1, +1}}, // xYZ
	{Order: [3]Axis{AxisZ, AxisY, AxisX}, Sign: [3]int8{-1, +1, +1}}, // zYX
	{Order: [3]Axis{AxisZ, AxisX, AxisY}, Sign: [3]int8{+1, -1, +1}}, // ZxY
	{Order: [3]Axis{AxisY, AxisZ, AxisX}, Sign: [3]int8{-1, -1, -1}}, // yzx
	{Order: [3]Axis{AxisX, AxisZ, AxisY}, Sign: [3]int8{-1, +1, +1}}, // xZY
	{Order: [3]Axis{AxisX, AxisZ, AxisY}, Sign: [3]int8{+1, -1, -1}}, // Xzy
	{Order: [3]Axis{AxisX, AxisZ, AxisY}, Sign: [3]int8{+1, -1, +1}}, // XzY
	{Order: [3]Axis{AxisY, AxisZ, AxisX}, Sign: [3]int8{+1, -1, +1}}, // YzX
	{Order: [3]Axis{AxisZ, AxisY, AxisX}, Sign: [3]int8{+1, -1, -1}}, // Zyx
	{Order: [3]Axis{AxisX, AxisZ, AxisY}, Sign: [3]int8{+1, +1, +1}}, // XZY
	{Order: [3]Axis{AxisY, AxisX, AxisZ}, Sign: [3]int8{-1, -1, -1}}, // yxz
	{Order: [3]Axis{AxisX, AxisZ, AxisY}, Sign: [3]int8{-1, -1, +1}}, // xzY
	{Order: [3]Axis{AxisZ, AxisY, AxisX}, Sign: [3]int8{+1, -1, +1}}, // ZyX
	{Order: [3]Axis{AxisY, AxisX, AxisZ}, Sign: [3]int8{+1, +1, +1}}, // YXZ
	{Order: [3]Axis{AxisY, AxisX, AxisZ}, Sign: [3]int8{-1, +1, +1}}, // yXZ
	{Order: [3]Axis{AxisY, AxisZ, AxisX}, Sign: [3]int8{+1, +1, -1}}, // YZx
	{Order: [3]Axis{AxisZ, AxisX, AxisY}, Sign: [3]int8{+1, +1, -1}}, // ZXy
}
