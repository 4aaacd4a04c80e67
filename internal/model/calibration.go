package model

import "time"

// Calibration represents a stored calibration run.
type Calibration struct {
	ID             int64     `json:"id"`
	VideoPath      string    `json:"video_path"`
	SquaresX       int       `json:"squares_x"`
	SquaresY       int       `json:"squares_y"`
	SquareLength   float64   `json:"square_length"`
	MarkerLength   float64   `json:"marker_length"`
	Dictionary     string    `json:"dictionary"`
	Policy         string    `json:"policy"`
	FramesTotal    int       `json:"frames_total"`
	FramesAccepted int       `json:"frames_accepted"`
	Success        bool      `json:"success"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	RMS            float64   `json:"rms"`
	Fx             float64   `json:"fx"`
	Fy             float64   `json:"fy"`
	Cx             float64   `json:"cx"`
	Cy             float64   `json:"cy"`
	DistCoeffs     []float64 `json:"dist_coeffs"`
	ArtifactPath   string    `json:"artifact_path"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// CalibrationFrame records the per-frame outcome of a stored run.
type CalibrationFrame struct {
	ID            int64 `json:"id"`
	CalibrationID int64 `json:"calibration_id"`
	FrameIndex    int   `json:"frame_index"`
	Corners       int   `json:"corners"`
	Accepted      bool  `json:"accepted"`
}

// NewCalibration records the outcome of a run. runErr is the error the run failed with, if any.
func NewCalibration(res *Result, artifactPath string, runErr error) Calibration {
	c := Calibration{
		VideoPath:      res.Video,
		SquaresX:       res.Board.SquaresX,
		SquaresY:       res.Board.SquaresY,
		SquareLength:   res.Board.SquareLength,
		MarkerLength:   res.Board.MarkerLength,
		Dictionary:     string(res.Board.Dictionary),
		Policy:         res.Policy,
		FramesTotal:    res.FramesTotal,
		FramesAccepted: res.FramesAccepted,
		Success:        res.Success && runErr == nil,
		ArtifactPath:   artifactPath,
		CreatedAt:      res.Finished,
	}
	if runErr != nil {
		c.Error = runErr.Error()
	}
	if c.Success {
		intr := res.Intrinsics
		c.Width, c.Height = intr.Width, intr.Height
		c.RMS = intr.RMS
		c.Fx, c.Fy, c.Cx, c.Cy = intr.Fx(), intr.Fy(), intr.Cx(), intr.Cy()
		c.DistCoeffs = intr.DistCoeffs
	}
	return c
}

// CalibrationFrames converts the per-frame events of a run into history rows.
func (r *Result) CalibrationFrames() []CalibrationFrame {
	out := make([]CalibrationFrame, len(r.Frames))
	for i, ev := range r.Frames {
		out[i] = CalibrationFrame{FrameIndex: ev.Index, Corners: ev.Corners, Accepted: ev.Accepted}
	}
	return out
}
