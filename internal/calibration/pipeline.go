package calibration

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/montanaflynn/stats"

	"charucocalib/internal/board"
	"charucocalib/internal/detector"
	"charucocalib/internal/logger"
	"charucocalib/internal/model"
	"charucocalib/internal/source"
)

// Solver estimates camera intrinsics from the accepted observations.
type Solver interface {
	Calibrate(obs []model.Observation, spec board.Spec, size image.Point) (model.Intrinsics, error)
}

// Options wire a Pipeline. Open, Detector and Solver are required.
type Options struct {
	Board    board.Spec
	Open     source.Opener
	Detector detector.Detector
	Policy   Policy // defaults to MinCorners{DefaultMinCorners}
	Solver   Solver
	Observer Observer // optional
	Logger   *logger.Logger
}

// Pipeline runs one calibration pass at a time. It holds no state between runs.
type Pipeline struct {
	board    board.Spec
	open     source.Opener
	detector detector.Detector
	policy   Policy
	solver   Solver
	observer Observer
	logger   *logger.Logger
}

func New(opts Options) *Pipeline {
	p := &Pipeline{
		board:    opts.Board,
		open:     opts.Open,
		detector: opts.Detector,
		policy:   opts.Policy,
		solver:   opts.Solver,
		observer: opts.Observer,
		logger:   opts.Logger,
	}
	if p.policy == nil {
		p.policy = MinCorners{Min: DefaultMinCorners}
	}
	if p.observer == nil {
		p.observer = NopObserver{}
	}
	if p.logger == nil {
		p.logger = logger.NewNop()
	}
	return p
}

// WithObserver returns a copy of the pipeline reporting progress to o.
func (p *Pipeline) WithObserver(o Observer) *Pipeline {
	cp := *p
	if o == nil {
		o = NopObserver{}
	}
	cp.observer = o
	return &cp
}

// Run performs a full pass over the video at videoPath. The returned Result is never nil and
// describes the pass up to the point it stopped; err explains a failed pass. The video is
// closed before Run returns on every path.
func (p *Pipeline) Run(ctx context.Context, videoPath string) (*model.Result, error) {
	res := &model.Result{
		Video:   videoPath,
		Board:   p.board,
		Policy:  p.policy.Name(),
		Started: time.Now(),
	}
	defer func() { res.Finished = time.Now() }()

	src, err := p.open(videoPath)
	if err != nil {
		if !errors.Is(err, source.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", source.ErrSourceUnavailable, err)
		}
		return res, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			p.logger.Warning("Failed to close video %s: %v", videoPath, err)
		}
	}()

	p.logger.Info("Calibrating from %s (board %s, policy %s)", videoPath, p.board, res.Policy)

	var set ObservationSet
	if err := p.collect(ctx, src, &set, res); err != nil {
		return res, err
	}
	if err := src.Err(); err != nil {
		p.logger.Warning("Video %s ended after %d frames: %v", videoPath, res.FramesTotal, err)
	}

	res.FramesAccepted = set.Len()
	res.CornerStats = cornerStats(set.CornerCounts())
	p.logger.Info("Read %d frames, accepted %d", res.FramesTotal, res.FramesAccepted)

	if set.Len() == 0 {
		return res, ErrNoObservations
	}

	obs, err := set.Consume()
	if err != nil {
		return res, err
	}
	intr, err := p.solver.Calibrate(obs, p.board, src.Size())
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrSolverFailure, err)
	}

	res.Intrinsics = intr
	res.Success = true
	p.logger.Info("Calibration converged with RMS %.4f px over %d views", intr.RMS, intr.ViewsUsed)
	return res, nil
}

// collect reads frames until the source is exhausted or ctx is done.
func (p *Pipeline) collect(ctx context.Context, src source.Source, set *ObservationSet, res *model.Result) error {
	total := src.FrameCount()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !src.Next() {
			return nil
		}
		frame := src.Frame()
		res.FramesTotal++

		ev := model.FrameEvent{Index: frame.Index, Total: total}
		obs, ok, err := p.detector.Detect(frame)
		switch {
		case err != nil:
			p.logger.Warning("Frame %d skipped: %v", frame.Index, err)
		case ok:
			obs.Frame = frame.Index
			ev.Detected = true
			ev.Corners = obs.Len()
			if p.policy.Accept(obs) {
				if err := set.Add(obs); err != nil {
					return err
				}
				ev.Accepted = true
			}
			p.logger.Debug("Frame %d: %d corners, accepted=%t", frame.Index, ev.Corners, ev.Accepted)
		default:
			p.logger.Debug("Frame %d: no board", frame.Index)
		}

		ev.AcceptedSoFar = set.Len()
		res.Frames = append(res.Frames, ev)
		p.observer.FrameProcessed(ev)
	}
}

// cornerStats summarizes per-frame corner counts. Empty input yields zeros.
func cornerStats(counts []float64) model.CornerStats {
	if len(counts) == 0 {
		return model.CornerStats{}
	}
	data := stats.Float64Data(counts)
	var out model.CornerStats
	out.Mean, _ = data.Mean()
	out.Median, _ = data.Median()
	out.Min, _ = data.Min()
	out.Max, _ = data.Max()
	return out
}
