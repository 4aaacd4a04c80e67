package calibration

import (
	"fmt"
	"strings"

	"charucocalib/internal/board"
	"charucocalib/internal/model"
)

// Policy names accepted by ParsePolicy.
const (
	PolicyMinCorners = "min-corners"
	PolicyFullBoard  = "full-board"
)

// DefaultMinCorners is the corner threshold of the min-corners policy.
const DefaultMinCorners = 3

// Policy decides whether an observation is kept for calibration.
type Policy interface {
	Accept(obs model.Observation) bool
	Name() string
}

// MinCorners accepts observations with strictly more than Min corners.
type MinCorners struct {
	Min int
}

func (p MinCorners) Accept(obs model.Observation) bool {
	return consistent(obs) && obs.Len() > p.Min
}

func (p MinCorners) Name() string { return PolicyMinCorners }

// FullBoard accepts only observations in which every interior corner of the board was found.
type FullBoard struct {
	Count int
}

func (p FullBoard) Accept(obs model.Observation) bool {
	return p.Count > 0 && consistent(obs) && obs.Len() == p.Count
}

func (p FullBoard) Name() string { return PolicyFullBoard }

func consistent(obs model.Observation) bool {
	return !obs.Empty() && len(obs.Corners) == len(obs.IDs)
}

// ParsePolicy resolves a policy by name. An empty name selects min-corners.
func ParsePolicy(name string, spec board.Spec, minCorners int) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyMinCorners:
		if minCorners < 0 {
			return nil, fmt.Errorf("min corners must not be negative, got %d", minCorners)
		}
		return MinCorners{Min: minCorners}, nil
	case PolicyFullBoard:
		return FullBoard{Count: spec.CornerCount()}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
