// Package board describes the geometry of a ChArUco calibration target.
package board

import (
	"errors"
	"fmt"
)

// ErrInvalidBoard is returned when a board description cannot describe a physical target.
var ErrInvalidBoard = errors.New("invalid charuco board")

const (
	// DefaultSquaresX is the number of chessboard squares along the board's x axis.
	DefaultSquaresX = 7
	// DefaultSquaresY is the number of chessboard squares along the board's y axis.
	DefaultSquaresY = 5
	// DefaultSquareLength is the printed square edge in meters.
	DefaultSquareLength = 0.03
	// DefaultMarkerLength is the printed marker edge in meters.
	DefaultMarkerLength = 0.015
	// DefaultDictionary is the ArUco dictionary the markers are drawn from.
	DefaultDictionary = Dict6x6_250
)

// Spec is an immutable ChArUco board description. The zero value is not valid; build one with New.
type Spec struct {
	SquaresX     int
	SquaresY     int
	SquareLength float64
	MarkerLength float64
	Dictionary   Dictionary
}

// New validates the parameters and returns a board description.
func New(squaresX, squaresY int, squareLength, markerLength float64, dict Dictionary) (Spec, error) {
	s := Spec{
		SquaresX:     squaresX,
		SquaresY:     squaresY,
		SquareLength: squareLength,
		MarkerLength: markerLength,
		Dictionary:   dict,
	}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// Default returns the 7x5 DICT_6X6_250 board with 30mm squares and 15mm markers.
func Default() Spec {
	return Spec{
		SquaresX:     DefaultSquaresX,
		SquaresY:     DefaultSquaresY,
		SquareLength: DefaultSquareLength,
		MarkerLength: DefaultMarkerLength,
		Dictionary:   DefaultDictionary,
	}
}

// Validate checks that the board can exist physically and that the dictionary can supply its markers.
func (s Spec) Validate() error {
	if s.SquaresX < 2 || s.SquaresY < 2 {
		return fmt.Errorf("%w: board must be at least 2x2 squares, got %dx%d", ErrInvalidBoard, s.SquaresX, s.SquaresY)
	}
	if s.SquareLength <= 0 || s.MarkerLength <= 0 {
		return fmt.Errorf("%w: square and marker lengths must be positive", ErrInvalidBoard)
	}
	if s.MarkerLength >= s.SquareLength {
		return fmt.Errorf("%w: marker length %g must be smaller than square length %g",
			ErrInvalidBoard, s.MarkerLength, s.SquareLength)
	}
	capacity, ok := s.Dictionary.MarkerCapacity()
	if !ok {
		return fmt.Errorf("%w: unknown dictionary %q", ErrInvalidBoard, s.Dictionary)
	}
	if s.MarkerCount() > capacity {
		return fmt.Errorf("%w: board needs %d markers but %s only has %d",
			ErrInvalidBoard, s.MarkerCount(), s.Dictionary, capacity)
	}
	return nil
}

// CornerCount is the number of interior chessboard corners, which is the largest
// observation a single frame can produce.
func (s Spec) CornerCount() int {
	return (s.SquaresX - 1) * (s.SquaresY - 1)
}

// MarkerCount is the number of white squares, each of which carries one marker.
func (s Spec) MarkerCount() int {
	return s.SquaresX * s.SquaresY / 2
}

func (s Spec) String() string {
	return fmt.Sprintf("%dx%d %s square=%g marker=%g",
		s.SquaresX, s.SquaresY, s.Dictionary, s.SquareLength, s.MarkerLength)
}
