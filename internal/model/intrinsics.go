package model

import "gonum.org/v1/gonum/mat"

// Intrinsics is the outcome of a successful calibration solve.
type Intrinsics struct {
	Width        int
	Height       int
	CameraMatrix *mat.Dense // 3x3
	DistCoeffs   []float64  // k1, k2, p1, p2, k3
	RMS          float64    // reprojection error in pixels
	ViewsUsed    int
}

// Fx returns the horizontal focal length in pixels.
func (i Intrinsics) Fx() float64 { return i.at(0, 0) }

// Fy returns the vertical focal length in pixels.
func (i Intrinsics) Fy() float64 { return i.at(1, 1) }

// Cx returns the principal point x coordinate.
func (i Intrinsics) Cx() float64 { return i.at(0, 2) }

// Cy returns the principal point y coordinate.
func (i Intrinsics) Cy() float64 { return i.at(1, 2) }

func (i Intrinsics) at(r, c int) float64 {
	if i.CameraMatrix == nil {
		return 0
	}
	return i.CameraMatrix.At(r, c)
}

// NewCameraMatrix builds the pinhole camera matrix from focal lengths and principal point.
func NewCameraMatrix(fx, fy, cx, cy float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		fx, 0, cx,
		0, fy, cy,
		0, 0, 1,
	})
}
