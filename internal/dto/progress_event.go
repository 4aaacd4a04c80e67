package dto

import "charucocalib/internal/model"

// Progress event types broadcast to websocket clients.
const (
	EventQueued   = "queued"
	EventStarted  = "started"
	EventFrame    = "frame"
	EventFinished = "finished"
)

// ProgressEvent is one websocket message about a calibration job.
type ProgressEvent struct {
	Type          string            `json:"type"`
	JobID         string            `json:"jobId"`
	Video         string            `json:"video,omitempty"`
	Frame         *model.FrameEvent `json:"frame,omitempty"`
	Success       bool              `json:"success,omitempty"`
	CalibrationID int64             `json:"calibrationId,omitempty"`
	RMS           float64           `json:"rms,omitempty"`
	Error         string            `json:"error,omitempty"`
}
