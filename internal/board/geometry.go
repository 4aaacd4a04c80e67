package board

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// square addresses one chessboard square by column and row.
type square struct {
	x, y int
}

// hasMarker reports whether the square at column x, row y is white. The top-left square is black.
func (s Spec) hasMarker(x, y int) bool {
	return y%2 != x%2
}

// markerSquares lists the white squares in marker id order (row-major from the top-left).
func (s Spec) markerSquares() []square {
	out := make([]square, 0, s.MarkerCount())
	for y := 0; y < s.SquaresY; y++ {
		for x := 0; x < s.SquaresX; x++ {
			if s.hasMarker(x, y) {
				out = append(out, square{x, y})
			}
		}
	}
	return out
}

// HasMarkerID reports whether the id belongs to a marker printed on this board.
func (s Spec) HasMarkerID(id int) bool {
	return id >= 0 && id < s.MarkerCount()
}

// HasCornerID reports whether the id names an interior chessboard corner of this board.
func (s Spec) HasCornerID(id int) bool {
	return id >= 0 && id < s.CornerCount()
}

// CornerPosition returns the board-frame position of a chessboard corner. Corner ids run
// row-major over the interior intersections and the board lies in the z=0 plane.
func (s Spec) CornerPosition(id int) (r3.Vector, error) {
	if !s.HasCornerID(id) {
		return r3.Vector{}, fmt.Errorf("corner id %d out of range [0,%d)", id, s.CornerCount())
	}
	cols := s.SquaresX - 1
	x, y := id%cols, id/cols
	return r3.Vector{
		X: float64(x+1) * s.SquareLength,
		Y: float64(y+1) * s.SquareLength,
		Z: 0,
	}, nil
}

// MarkerCorners returns the four board-frame corners of a marker, clockwise from top-left,
// matching the corner order ArUco detection reports.
func (s Spec) MarkerCorners(id int) ([4]r3.Vector, error) {
	if !s.HasMarkerID(id) {
		return [4]r3.Vector{}, fmt.Errorf("marker id %d out of range [0,%d)", id, s.MarkerCount())
	}
	sq := s.markerSquares()[id]
	inset := (s.SquareLength - s.MarkerLength) / 2
	x0 := float64(sq.x)*s.SquareLength + inset
	y0 := float64(sq.y)*s.SquareLength + inset
	m := s.MarkerLength
	return [4]r3.Vector{
		{X: x0, Y: y0},
		{X: x0 + m, Y: y0},
		{X: x0 + m, Y: y0 + m},
		{X: x0, Y: y0 + m},
	}, nil
}

// NearestMarkers returns the ids of the markers in the squares touching a chessboard corner.
// Interior corners always touch exactly two white squares.
func (s Spec) NearestMarkers(cornerID int) ([]int, error) {
	if !s.HasCornerID(cornerID) {
		return nil, fmt.Errorf("corner id %d out of range [0,%d)", cornerID, s.CornerCount())
	}
	cols := s.SquaresX - 1
	cx, cy := cornerID%cols, cornerID/cols

	ids := make(map[square]int, s.MarkerCount())
	for id, sq := range s.markerSquares() {
		ids[sq] = id
	}

	var out []int
	// corner (cx, cy) sits at the shared vertex of squares (cx..cx+1, cy..cy+1)
	for _, sq := range []square{{cx, cy}, {cx + 1, cy}, {cx, cy + 1}, {cx + 1, cy + 1}} {
		if id, ok := ids[sq]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// ObjectPoints maps corner ids to their board-frame positions, in the order given.
func (s Spec) ObjectPoints(ids []int) ([]r3.Vector, error) {
	out := make([]r3.Vector, len(ids))
	for i, id := range ids {
		p, err := s.CornerPosition(id)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// Collinear reports whether all the given corners lie on one straight line of the board.
// Such a view cannot constrain a homography.
func (s Spec) Collinear(ids []int) bool {
	if len(ids) < 3 {
		return true
	}
	cols := s.SquaresX - 1
	x0, y0 := ids[0]%cols, ids[0]/cols
	dx, dy := 0, 0
	for _, id := range ids[1:] {
		x, y := id%cols-x0, id/cols-y0
		if dx == 0 && dy == 0 {
			dx, dy = x, y
			continue
		}
		if dx*y-dy*x != 0 {
			return false
		}
	}
	return true
}
