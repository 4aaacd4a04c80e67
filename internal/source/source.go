// Package source supplies decoded frames from stored video in capture order.
package source

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

// ErrSourceUnavailable is returned when a video cannot be opened.
var ErrSourceUnavailable = errors.New("frame source unavailable")

// ErrClosed is reported by Err when iteration is attempted on a closed source.
var ErrClosed = errors.New("frame source closed")

// Frame is one decoded image. Mat is owned by the source and is only valid
// until the next call to Next; callers that keep pixels must Clone it.
type Frame struct {
	Index  int
	Width  int
	Height int
	Mat    gocv.Mat
}

// Source is a finite, forward-only sequence of frames. Once Next returns false it
// keeps returning false; a source cannot be rewound. Close must be called on every
// exit path and is safe to call more than once.
type Source interface {
	// Size is the frame size reported by the container.
	Size() image.Point
	// FrameCount is the container's frame count estimate, 0 when unknown.
	FrameCount() int
	Next() bool
	Frame() Frame
	// Err returns the error that ended iteration early, if any.
	Err() error
	Close() error
}

// Opener opens a source by path.
type Opener func(path string) (Source, error)
