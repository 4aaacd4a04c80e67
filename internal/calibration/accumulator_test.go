package calibration

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestObservationSet_OrderAndConsume(t *testing.T) {
	var set ObservationSet
	for _, f := range []int{4, 9, 15} {
		if err := set.Add(observation(f, 5)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	if set.Len() != 3 {
		t.Fatalf("expected 3 observations, got %d", set.Len())
	}
	if diff := cmp.Diff([]int{4, 9, 15}, set.Frames()); diff != "" {
		t.Errorf("frame order mismatch (-want +got):\n%s", diff)
	}

	// a copy must not alias the set
	snapshot := set.Observations()
	snapshot[0].Frame = 99
	if set.Frames()[0] != 4 {
		t.Error("Observations returned an aliased slice")
	}

	obs, err := set.Consume()
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if len(obs) != 3 {
		t.Errorf("expected 3 consumed observations, got %d", len(obs))
	}
	if _, err := set.Consume(); !errors.Is(err, ErrConsumed) {
		t.Errorf("second Consume: expected ErrConsumed, got %v", err)
	}
	if err := set.Add(observation(20, 5)); !errors.Is(err, ErrConsumed) {
		t.Errorf("Add after Consume: expected ErrConsumed, got %v", err)
	}
}
