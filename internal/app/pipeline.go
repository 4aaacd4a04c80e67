package app

import (
	"fmt"

	"charucocalib/internal/calibration"
	"charucocalib/internal/config"
	"charucocalib/internal/detector"
	"charucocalib/internal/logger"
	"charucocalib/internal/solver"
	"charucocalib/internal/source"
)

// NewPipeline builds the video calibration pipeline described by cfg. The returned
// detector owns OpenCV buffers and must be closed once the pipeline is no longer used.
func NewPipeline(cfg *config.Config, logger *logger.Logger) (*calibration.Pipeline, *detector.ArUco, error) {
	spec, err := cfg.Board()
	if err != nil {
		return nil, nil, err
	}

	policy, err := calibration.ParsePolicy(cfg.AcceptPolicy, spec, cfg.MinCorners)
	if err != nil {
		return nil, nil, err
	}

	det, err := detector.NewArUco(spec, detector.Options{
		MinMarkers:   cfg.MinMarkers,
		SubPixWindow: cfg.SubPixWindow,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create detector: %w", err)
	}

	pipeline := calibration.New(calibration.Options{
		Board:    spec,
		Open:     source.Open,
		Detector: det,
		Policy:   policy,
		Solver: solver.NewOpenCV(solver.Options{
			MinViews: cfg.MinViews,
			MaxRMS:   cfg.MaxRMS,
		}),
		Logger: logger,
	})
	return pipeline, det, nil
}
