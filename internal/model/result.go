package model

import (
	"time"

	"charucocalib/internal/board"
)

// CornerStats summarizes how many corners each accepted frame contributed.
type CornerStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// FrameEvent describes what happened to one frame during a calibration pass.
type FrameEvent struct {
	Index         int  `json:"index"`
	Total         int  `json:"total"`
	Corners       int  `json:"corners"`
	Detected      bool `json:"detected"`
	Accepted      bool `json:"accepted"`
	AcceptedSoFar int  `json:"acceptedSoFar"`
}

// Result is produced once at the end of a calibration run and is not modified afterwards.
type Result struct {
	Success        bool
	Video          string
	Board          board.Spec
	Policy         string
	FramesTotal    int
	FramesAccepted int
	CornerStats    CornerStats
	Frames         []FrameEvent
	Intrinsics     Intrinsics
	Started        time.Time
	Finished       time.Time
}
