package model

import "github.com/golang/geo/r2"

// Observation is the set of ChArUco corners interpolated from one frame.
// Corners[i] is the image position of board corner IDs[i].
type Observation struct {
	Frame   int
	Corners []r2.Point
	IDs     []int
}

// Len returns the number of corners in the observation.
func (o Observation) Len() int {
	return len(o.Corners)
}

// Empty reports whether the observation carries no usable corners.
func (o Observation) Empty() bool {
	return len(o.Corners) == 0 || len(o.IDs) == 0
}
