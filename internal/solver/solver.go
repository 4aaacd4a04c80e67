// Package solver estimates pinhole intrinsics and Brown-Conrady distortion from ChArUco
// observations using OpenCV's calibrateCamera.
package solver

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"charucocalib/internal/board"
	"charucocalib/internal/model"
)

var (
	// ErrInsufficientData is returned when the observations cannot constrain a solve.
	ErrInsufficientData = errors.New("insufficient calibration data")
	// ErrNotConverged is returned when the solve finished but produced an unusable camera.
	ErrNotConverged = errors.New("calibration did not converge")
)

const (
	// DefaultMinViews is the number of usable views required to attempt a solve.
	DefaultMinViews = 1
	// minPointsPerView is the fewest corners OpenCV accepts in one view.
	minPointsPerView = 4
	distCoeffCount   = 5
)

// Options configure the OpenCV solver. Zero values select the defaults.
type Options struct {
	MinViews int
	MaxRMS   float64 // 0 disables the reprojection error bound
}

// OpenCV calibrates with gocv.CalibrateCamera using the standard five coefficient model.
// It is stateless and safe to reuse across runs.
type OpenCV struct {
	minViews int
	maxRMS   float64
}

func NewOpenCV(opts Options) *OpenCV {
	if opts.MinViews <= 0 {
		opts.MinViews = DefaultMinViews
	}
	return &OpenCV{minViews: opts.MinViews, maxRMS: opts.MaxRMS}
}

// Calibrate solves for the camera that best explains the observations of spec seen in
// images of the given size.
func (s *OpenCV) Calibrate(obs []model.Observation, spec board.Spec, size image.Point) (model.Intrinsics, error) {
	if size.X <= 0 || size.Y <= 0 {
		return model.Intrinsics{}, fmt.Errorf("%w: image size %dx%d", ErrInsufficientData, size.X, size.Y)
	}
	objPts, imgPts, err := s.prepare(obs, spec)
	if err != nil {
		return model.Intrinsics{}, err
	}

	objVec := gocv.NewPoints3fVectorFromPoints(objPts)
	defer objVec.Close()
	imgVec := gocv.NewPoints2fVectorFromPoints(imgPts)
	defer imgVec.Close()

	cameraMatrix := gocv.NewMat()
	defer cameraMatrix.Close()
	distCoeffs := gocv.NewMat()
	defer distCoeffs.Close()
	rvecs := gocv.NewMat()
	defer rvecs.Close()
	tvecs := gocv.NewMat()
	defer tvecs.Close()

	rms := gocv.CalibrateCamera(objVec, imgVec, size, &cameraMatrix, &distCoeffs, &rvecs, &tvecs, 0)

	if cameraMatrix.Rows() != 3 || cameraMatrix.Cols() != 3 {
		return model.Intrinsics{}, fmt.Errorf("%w: camera matrix is %dx%d", ErrNotConverged, cameraMatrix.Rows(), cameraMatrix.Cols())
	}
	intr := model.Intrinsics{
		Width:        size.X,
		Height:       size.Y,
		CameraMatrix: togonum(&cameraMatrix),
		DistCoeffs:   coefficients(&distCoeffs),
		RMS:          rms,
		ViewsUsed:    len(objPts),
	}
	if err := s.check(intr); err != nil {
		return model.Intrinsics{}, err
	}
	return intr, nil
}

// prepare pairs board and image points per view, dropping views OpenCV cannot use.
func (s *OpenCV) prepare(obs []model.Observation, spec board.Spec) ([][]gocv.Point3f, [][]gocv.Point2f, error) {
	var objPts [][]gocv.Point3f
	var imgPts [][]gocv.Point2f
	for _, o := range obs {
		if len(o.IDs) != len(o.Corners) || len(o.IDs) < minPointsPerView {
			continue
		}
		if spec.Collinear(o.IDs) {
			continue
		}
		board3d, err := spec.ObjectPoints(o.IDs)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: frame %d: %w", ErrInsufficientData, o.Frame, err)
		}

		obj := make([]gocv.Point3f, len(board3d))
		for i, p := range board3d {
			obj[i] = gocv.Point3f{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
		}
		img := make([]gocv.Point2f, len(o.Corners))
		for i, p := range o.Corners {
			img[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
		}
		objPts = append(objPts, obj)
		imgPts = append(imgPts, img)
	}

	if len(objPts) < s.minViews {
		return nil, nil, fmt.Errorf("%w: %d usable views of %d, need %d", ErrInsufficientData, len(objPts), len(obs), s.minViews)
	}
	return objPts, imgPts, nil
}

// check rejects numerically broken or overly inaccurate solutions.
func (s *OpenCV) check(intr model.Intrinsics) error {
	if math.IsNaN(intr.RMS) || math.IsInf(intr.RMS, 0) {
		return fmt.Errorf("%w: reprojection error is %v", ErrNotConverged, intr.RMS)
	}
	if !(intr.Fx() > 0) || !(intr.Fy() > 0) {
		return fmt.Errorf("%w: focal lengths fx=%v fy=%v", ErrNotConverged, intr.Fx(), intr.Fy())
	}
	if s.maxRMS > 0 && intr.RMS > s.maxRMS {
		return fmt.Errorf("%w: reprojection error %.4f px above %.4f px", ErrNotConverged, intr.RMS, s.maxRMS)
	}
	return nil
}

func togonum(m *gocv.Mat) *mat.Dense {
	d := mat.NewDense(m.Rows(), m.Cols(), nil)
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			d.Set(r, c, m.GetDoubleAt(r, c))
		}
	}
	return d
}

// coefficients flattens OpenCV's distortion vector (row or column) to k1, k2, p1, p2, k3.
func coefficients(m *gocv.Mat) []float64 {
	out := make([]float64, 0, distCoeffCount)
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			out = append(out, m.GetDoubleAt(r, c))
		}
	}
	return out
}
