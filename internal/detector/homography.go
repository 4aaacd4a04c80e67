package detector

import (
	"errors"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateHomography is returned when four correspondences do not define a projective map,
// for example when three of the points are collinear.
var ErrDegenerateHomography = errors.New("degenerate homography")

// Homography is a 3x3 projective map between two planes, stored row-major.
type Homography [9]float64

// Apply maps a point through the homography.
func (h Homography) Apply(p r2.Point) r2.Point {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	return r2.Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// Dense returns the homography as a gonum matrix.
func (h Homography) Dense() *mat.Dense {
	return mat.NewDense(3, 3, h[:])
}

// EstimateHomography solves for the homography taking src[i] to dst[i]. Both point sets are
// normalized to zero mean and unit scale first so board coordinates in meters and image
// coordinates in pixels are conditioned alike.
func EstimateHomography(src, dst [4]r2.Point) (Homography, error) {
	ts, ok := normalization(src[:])
	if !ok {
		return Homography{}, ErrDegenerateHomography
	}
	td, ok := normalization(dst[:])
	if !ok {
		return Homography{}, ErrDegenerateHomography
	}

	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		s := ts.Apply(src[i])
		d := td.Apply(dst[i])
		a.SetRow(2*i, []float64{s.X, s.Y, 1, 0, 0, 0, -d.X * s.X, -d.X * s.Y})
		a.SetRow(2*i+1, []float64{0, 0, 0, s.X, s.Y, 1, -d.Y * s.X, -d.Y * s.Y})
		b.SetVec(2*i, d.X)
		b.SetVec(2*i+1, d.Y)
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return Homography{}, ErrDegenerateHomography
	}

	hn := mat.NewDense(3, 3, []float64{
		x.AtVec(0), x.AtVec(1), x.AtVec(2),
		x.AtVec(3), x.AtVec(4), x.AtVec(5),
		x.AtVec(6), x.AtVec(7), 1,
	})

	// H = Td^-1 * Hn * Ts
	var tdInv mat.Dense
	if err := tdInv.Inverse(td.Dense()); err != nil {
		return Homography{}, ErrDegenerateHomography
	}
	var tmp, full mat.Dense
	tmp.Mul(hn, ts.Dense())
	full.Mul(&tdInv, &tmp)

	scale := full.At(2, 2)
	if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return Homography{}, ErrDegenerateHomography
	}
	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[3*r+c] = full.At(r, c) / scale
		}
	}
	return h, nil
}

// normalization returns the similarity moving the centroid of pts to the origin and
// their mean distance from it to sqrt(2).
func normalization(pts []r2.Point) (Homography, bool) {
	var centroid r2.Point
	for _, p := range pts {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1 / float64(len(pts)))

	var mean float64
	for _, p := range pts {
		mean += p.Sub(centroid).Norm()
	}
	mean /= float64(len(pts))
	if mean == 0 || math.IsNaN(mean) {
		return Homography{}, false
	}

	s := math.Sqrt2 / mean
	return Homography{
		s, 0, -s * centroid.X,
		0, s, -s * centroid.Y,
		0, 0, 1,
	}, true
}
