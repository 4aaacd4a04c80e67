// Package detector finds ArUco markers in a frame and interpolates ChArUco board corners from them.
package detector

import (
	"github.com/golang/geo/r2"

	"charucocalib/internal/model"
	"charucocalib/internal/source"
)

// DefaultMinMarkers is how many detected neighbouring markers a corner needs before it is reported.
const DefaultMinMarkers = 2

// Detection holds the markers found in one frame. Corners[i] are the image corners of
// marker IDs[i], clockwise from the marker's top-left.
type Detection struct {
	Corners [][4]r2.Point
	IDs     []int
}

// Len returns the number of detected markers.
func (d Detection) Len() int {
	return len(d.IDs)
}

// Detector turns a frame into a ChArUco observation. ok is false when the frame
// holds no markers or no corner could be interpolated; that is a normal outcome, not an error.
// Implementations keep no state between frames.
type Detector interface {
	Detect(frame source.Frame) (obs model.Observation, ok bool, err error)
}
