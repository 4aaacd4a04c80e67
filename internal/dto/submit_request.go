package dto

// SubmitRequest asks the server to calibrate from a video file it can read.
type SubmitRequest struct {
	Video string `json:"video"`
}

// SubmitResponse acknowledges a queued calibration job.
type SubmitResponse struct {
	JobID string `json:"jobId"`
}
