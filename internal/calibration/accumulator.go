package calibration

import (
	"sync"

	"charucocalib/internal/model"
)

// ObservationSet collects accepted observations in frame order. It is append-only
// until Consume hands its contents to the solver.
type ObservationSet struct {
	mu       sync.Mutex
	obs      []model.Observation
	consumed bool
}

// Add appends an observation.
func (s *ObservationSet) Add(obs model.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consumed {
		return ErrConsumed
	}
	s.obs = append(s.obs, obs)
	return nil
}

// Len returns the number of observations collected so far.
func (s *ObservationSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.obs)
}

// Observations returns a copy of the collected observations.
func (s *ObservationSet) Observations() []model.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Observation, len(s.obs))
	copy(out, s.obs)
	return out
}

// Frames returns the frame index of every collected observation.
func (s *ObservationSet) Frames() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int, len(s.obs))
	for i, o := range s.obs {
		out[i] = o.Frame
	}
	return out
}

// CornerCounts returns the corner count of every collected observation.
func (s *ObservationSet) CornerCounts() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]float64, len(s.obs))
	for i, o := range s.obs {
		out[i] = float64(o.Len())
	}
	return out
}

// Consume marks the set as used and returns its contents. It succeeds once.
func (s *ObservationSet) Consume() ([]model.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consumed {
		return nil, ErrConsumed
	}
	s.consumed = true
	return s.obs, nil
}
