package source

import (
	"fmt"
	"image"
	"os"
	"sync"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// Video reads frames from a media container through OpenCV.
type Video struct {
	path    string
	capture *gocv.VideoCapture
	buf     gocv.Mat
	size    image.Point
	count   int
	index   int
	done    bool
	err     error

	closeOnce sync.Once
	closeErr  error
	releases  int
}

// OpenVideo opens the video at path. The returned error wraps ErrSourceUnavailable
// when the path is missing or the container cannot be decoded.
func OpenVideo(path string) (*Video, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceUnavailable, path)
	}

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrSourceUnavailable, path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s could not be decoded", ErrSourceUnavailable, path)
	}

	return &Video{
		path:    path,
		capture: capture,
		buf:     gocv.NewMat(),
		size: image.Pt(
			int(capture.Get(gocv.VideoCaptureFrameWidth)),
			int(capture.Get(gocv.VideoCaptureFrameHeight)),
		),
		count: int(capture.Get(gocv.VideoCaptureFrameCount)),
		index: -1,
	}, nil
}

// Open is an Opener backed by OpenVideo.
func Open(path string) (Source, error) {
	v, err := OpenVideo(path)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Path returns the path the video was opened from.
func (v *Video) Path() string {
	return v.path
}

// Size returns the frame size reported by the container, or the size of the first
// decoded frame when the container does not report one.
func (v *Video) Size() image.Point {
	return v.size
}

// FrameCount returns the container's frame count, which may be an estimate.
func (v *Video) FrameCount() int {
	return v.count
}

// Next decodes the next frame into the shared buffer. After Close it returns false
// and Err reports ErrClosed.
func (v *Video) Next() bool {
	if v.releases > 0 {
		v.done = true
		v.err = ErrClosed
		return false
	}
	if v.done {
		return false
	}
	if ok := v.capture.Read(&v.buf); !ok || v.buf.Empty() {
		v.done = true
		return false
	}
	v.index++
	if v.size.X <= 0 || v.size.Y <= 0 {
		v.size = image.Pt(v.buf.Cols(), v.buf.Rows())
	}
	return true
}

// Frame returns the most recently decoded frame.
func (v *Video) Frame() Frame {
	return Frame{
		Index:  v.index,
		Width:  v.buf.Cols(),
		Height: v.buf.Rows(),
		Mat:    v.buf,
	}
}

// Err returns the error that stopped iteration, nil at a normal end of stream.
func (v *Video) Err() error {
	return v.err
}

// Close releases the capture handle and the frame buffer. Only the first call does any work.
func (v *Video) Close() error {
	v.closeOnce.Do(func() {
		v.closeErr = multierr.Combine(v.capture.Close(), v.buf.Close())
		v.releases++
		v.done = true
	})
	return v.closeErr
}

// Releases reports how many times the underlying handle has been released.
func (v *Video) Releases() int {
	return v.releases
}
