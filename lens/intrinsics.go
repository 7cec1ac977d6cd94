package lens

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width == 0 || params.Height == 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// Scaled returns the intrinsics rescaled from the calibration resolution to width x height.
func (params *PinholeCameraIntrinsics) Scaled(width, height int) *PinholeCameraIntrinsics {
	if params.Width == width && params.Height == height {
		return params
	}
	sx := float64(width) / float64(params.Width)
	sy := float64(height) / float64(params.Height)
	return &PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     params.Fx * sx,
		Fy:     params.Fy * sy,
		Ppx:    params.Ppx * sx,
		Ppy:    params.Ppy * sy,
	}
}

// PixelToNormalized maps a pixel to normalized image coordinates (x/z, y/z).
func (params *PinholeCameraIntrinsics) PixelToNormalized(u, v float64) (float64, float64) {
	return (u - params.Ppx) / params.Fx, (v - params.Ppy) / params.Fy
}

// NormalizedToPixel maps normalized image coordinates back to a pixel.
func (params *PinholeCameraIntrinsics) NormalizedToPixel(x, y float64) (float64, float64) {
	return x*params.Fx + params.Ppx, y*params.Fy + params.Ppy
}
