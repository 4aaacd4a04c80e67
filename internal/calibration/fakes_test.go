package calibration

import (
	"errors"
	"image"

	"github.com/golang/geo/r2"

	"charucocalib/internal/board"
	"charucocalib/internal/model"
	"charucocalib/internal/source"
)

// fakeSource yields count empty frames, then readErr if set.
type fakeSource struct {
	count   int
	size    image.Point
	index   int
	readErr error
	closes  int
}

func (s *fakeSource) Size() image.Point { return s.size }
func (s *fakeSource) FrameCount() int   { return s.count }

func (s *fakeSource) Next() bool {
	if s.closes > 0 || s.index+1 >= s.count {
		return false
	}
	s.index++
	return true
}

func (s *fakeSource) Frame() source.Frame {
	return source.Frame{Index: s.index, Width: s.size.X, Height: s.size.Y}
}

func (s *fakeSource) Err() error { return s.readErr }

func (s *fakeSource) Close() error {
	s.closes++
	return nil
}

func newFakeSource(count int) *fakeSource {
	return &fakeSource{count: count, size: image.Pt(640, 480), index: -1}
}

func openerFor(src *fakeSource) source.Opener {
	return func(string) (source.Source, error) { return src, nil }
}

// fakeDetector reports a fixed number of corners per frame index. Missing entries
// mean no board; entries in fail return an error.
type fakeDetector struct {
	corners map[int]int
	fail    map[int]bool
}

func (d *fakeDetector) Detect(frame source.Frame) (model.Observation, bool, error) {
	if d.fail[frame.Index] {
		return model.Observation{}, false, errors.New("decode glitch")
	}
	n, ok := d.corners[frame.Index]
	if !ok || n == 0 {
		return model.Observation{}, false, nil
	}
	return observation(frame.Index, n), true, nil
}

func observation(frame, n int) model.Observation {
	obs := model.Observation{Frame: frame}
	for i := 0; i < n; i++ {
		obs.IDs = append(obs.IDs, i)
		obs.Corners = append(obs.Corners, r2.Point{X: float64(10 * i), Y: float64(frame)})
	}
	return obs
}

// fakeSolver records what it was given and returns a canned result.
type fakeSolver struct {
	calls int
	got   []model.Observation
	size  image.Point
	err   error
}

func (s *fakeSolver) Calibrate(obs []model.Observation, spec board.Spec, size image.Point) (model.Intrinsics, error) {
	s.calls++
	s.got = obs
	s.size = size
	if s.err != nil {
		return model.Intrinsics{}, s.err
	}
	return model.Intrinsics{
		Width:        size.X,
		Height:       size.Y,
		CameraMatrix: model.NewCameraMatrix(800, 800, 320, 240),
		DistCoeffs:   []float64{0.1, -0.05, 0, 0, 0.01},
		RMS:          0.3,
		ViewsUsed:    len(obs),
	}, nil
}

type recordingObserver struct {
	events []model.FrameEvent
}

func (o *recordingObserver) FrameProcessed(ev model.FrameEvent) {
	o.events = append(o.events, ev)
}
