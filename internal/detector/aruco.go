package detector

import (
	"errors"
	"fmt"
	"image"

	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"

	"charucocalib/internal/board"
	"charucocalib/internal/model"
	"charucocalib/internal/source"
)

const (
	// DefaultSubPixWindow is the half size of the corner refinement search window in pixels.
	DefaultSubPixWindow = 5
	subPixMaxIterations = 30
	subPixEpsilon       = 0.01
)

var errEmptyFrame = errors.New("frame is empty")

var gocvDictionaries = map[board.Dictionary]gocv.ArucoDictionaryCode{
	board.Dict4x4_50:        gocv.ArucoDict4x4_50,
	board.Dict4x4_100:       gocv.ArucoDict4x4_100,
	board.Dict4x4_250:       gocv.ArucoDict4x4_250,
	board.Dict4x4_1000:      gocv.ArucoDict4x4_1000,
	board.Dict5x5_50:        gocv.ArucoDict5x5_50,
	board.Dict5x5_100:       gocv.ArucoDict5x5_100,
	board.Dict5x5_250:       gocv.ArucoDict5x5_250,
	board.Dict5x5_1000:      gocv.ArucoDict5x5_1000,
	board.Dict6x6_50:        gocv.ArucoDict6x6_50,
	board.Dict6x6_100:       gocv.ArucoDict6x6_100,
	board.Dict6x6_250:       gocv.ArucoDict6x6_250,
	board.Dict6x6_1000:      gocv.ArucoDict6x6_1000,
	board.Dict7x7_50:        gocv.ArucoDict7x7_50,
	board.Dict7x7_100:       gocv.ArucoDict7x7_100,
	board.Dict7x7_250:       gocv.ArucoDict7x7_250,
	board.Dict7x7_1000:      gocv.ArucoDict7x7_1000,
	board.DictArucoOriginal: gocv.ArucoDictArucoOriginal,
}

// Options tune the ArUco detector. Zero values select the defaults.
type Options struct {
	MinMarkers   int
	SubPixWindow int // 0 selects the default, negative disables refinement
}

// ArUco detects markers with OpenCV and interpolates ChArUco corners from them.
// It reuses a grayscale buffer and is therefore not safe for concurrent use.
type ArUco struct {
	board      board.Spec
	detector   gocv.ArucoDetector
	minMarkers int
	window     int
	gray       gocv.Mat
}

// NewArUco builds a detector for the given board using OpenCV's default detector parameters.
func NewArUco(spec board.Spec, opts Options) (*ArUco, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	dictType, ok := gocvDictionaries[spec.Dictionary]
	if !ok {
		return nil, fmt.Errorf("%w: no OpenCV dictionary for %q", board.ErrInvalidBoard, spec.Dictionary)
	}

	if opts.MinMarkers <= 0 {
		opts.MinMarkers = DefaultMinMarkers
	}
	if opts.SubPixWindow == 0 {
		opts.SubPixWindow = DefaultSubPixWindow
	}

	dict := gocv.GetPredefinedDictionary(dictType)
	params := gocv.NewArucoDetectorParameters()

	return &ArUco{
		board:      spec,
		detector:   gocv.NewArucoDetectorWithParams(dict, params),
		minMarkers: opts.MinMarkers,
		window:     opts.SubPixWindow,
		gray:       gocv.NewMat(),
	}, nil
}

// Detect converts the frame to grayscale, finds markers and interpolates corners.
func (a *ArUco) Detect(frame source.Frame) (model.Observation, bool, error) {
	if frame.Mat.Empty() {
		return model.Observation{}, false, errEmptyFrame
	}

	gray := frame.Mat
	if frame.Mat.Channels() > 1 {
		if err := gocv.CvtColor(frame.Mat, &a.gray, gocv.ColorBGRToGray); err != nil {
			return model.Observation{}, false, fmt.Errorf("failed to convert frame %d to grayscale: %w", frame.Index, err)
		}
		gray = a.gray
	}

	markerCorners, markerIDs, _ := a.detector.DetectMarkers(gray)
	if len(markerIDs) == 0 {
		return model.Observation{}, false, nil
	}

	det := Detection{
		Corners: make([][4]r2.Point, 0, len(markerCorners)),
		IDs:     make([]int, 0, len(markerIDs)),
	}
	for i, quad := range markerCorners {
		if len(quad) != 4 || i >= len(markerIDs) {
			continue
		}
		var c [4]r2.Point
		for k, p := range quad {
			c[k] = r2.Point{X: float64(p.X), Y: float64(p.Y)}
		}
		det.Corners = append(det.Corners, c)
		det.IDs = append(det.IDs, markerIDs[i])
	}

	obs := Interpolate(a.board, det, a.minMarkers)
	obs.Frame = frame.Index
	obs = cropToBounds(obs, gray.Cols(), gray.Rows())
	if obs.Empty() {
		return model.Observation{}, false, nil
	}

	if a.window > 0 {
		a.refine(gray, &obs)
	}
	return obs, true, nil
}

// refine moves each corner to the sub-pixel saddle point of the grayscale image.
func (a *ArUco) refine(gray gocv.Mat, obs *model.Observation) {
	pts := gocv.NewMatWithSize(len(obs.Corners), 2, gocv.MatTypeCV32F)
	defer pts.Close()

	for i, p := range obs.Corners {
		pts.SetFloatAt(i, 0, float32(p.X))
		pts.SetFloatAt(i, 1, float32(p.Y))
	}

	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, subPixMaxIterations, subPixEpsilon)
	gocv.CornerSubPix(gray, &pts, image.Pt(a.window, a.window), image.Pt(-1, -1), criteria)

	for i := range obs.Corners {
		obs.Corners[i] = r2.Point{
			X: float64(pts.GetFloatAt(i, 0)),
			Y: float64(pts.GetFloatAt(i, 1)),
		}
	}
}

// Close releases the OpenCV detector and buffers.
func (a *ArUco) Close() error {
	a.detector.Close()
	return a.gray.Close()
}
