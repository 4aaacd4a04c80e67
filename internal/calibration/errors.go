// Package calibration runs a calibration pass over a video: it feeds frames to a detector,
// keeps the observations the acceptance policy admits and hands them to a solver.
package calibration

import "errors"

var (
	// ErrNoObservations is returned when no frame produced an accepted observation.
	// The solver is not invoked in that case.
	ErrNoObservations = errors.New("no usable charuco observations collected")
	// ErrSolverFailure wraps any error reported by the solver.
	ErrSolverFailure = errors.New("calibration solver failed")
	// ErrConsumed is returned when an observation set is used after it was handed to the solver.
	ErrConsumed = errors.New("observation set already consumed")
	// ErrUnknownPolicy is returned for acceptance policy names that are not recognised.
	ErrUnknownPolicy = errors.New("unknown acceptance policy")
)
