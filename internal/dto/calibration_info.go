package dto

import (
	"encoding/json"
	"time"

	"charucocalib/internal/model"
)

// CalibrationInfo is the list view of a stored calibration run.
type CalibrationInfo struct {
	ID             int64     `json:"id"`
	Video          string    `json:"video"`
	Success        bool      `json:"success"`
	Policy         string    `json:"policy"`
	FramesTotal    int       `json:"framesTotal"`
	FramesAccepted int       `json:"framesAccepted"`
	RMS            float64   `json:"rms"`
	Fx             float64   `json:"fx"`
	Fy             float64   `json:"fy"`
	Cx             float64   `json:"cx"`
	Cy             float64   `json:"cy"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewCalibrationInfo builds the list view of a stored run.
func NewCalibrationInfo(c model.Calibration) CalibrationInfo {
	return CalibrationInfo{
		ID:             c.ID,
		Video:          c.VideoPath,
		Success:        c.Success,
		Policy:         c.Policy,
		FramesTotal:    c.FramesTotal,
		FramesAccepted: c.FramesAccepted,
		RMS:            c.RMS,
		Fx:             c.Fx,
		Fy:             c.Fy,
		Cx:             c.Cx,
		Cy:             c.Cy,
		Error:          c.Error,
		CreatedAt:      c.CreatedAt,
	}
}

// MarshalJSON formats the creation time for display.
func (c CalibrationInfo) MarshalJSON() ([]byte, error) {
	type Alias CalibrationInfo
	return json.Marshal(&struct {
		CreatedAt string `json:"createdAt"`
		Alias
	}{
		CreatedAt: c.CreatedAt.Format("02-01-2006 15:04:05"),
		Alias:     (Alias)(c),
	})
}
