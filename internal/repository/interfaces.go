package repository

import (
	"errors"

	"charucocalib/internal/dto"
	"charucocalib/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// CalibrationRepository defines the interface for calibration run history.
type CalibrationRepository interface {
	// Create operations
	Insert(c *model.Calibration) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Calibration, error)
	GetAll(filter *dto.CalibrationFilter) ([]model.Calibration, error)
	GetTotalCount(filter *dto.CalibrationFilter) (int, error)
	Latest() (*model.Calibration, error)
	ExistsByArtifact(path string) (bool, error)

	// Delete operations
	Delete(id int64) error
}

// FrameRepository defines the interface for per-frame outcomes of a run.
type FrameRepository interface {
	// Create operations
	InsertBatch(calibrationID int64, frames []model.CalibrationFrame) error

	// Read operations
	GetByCalibrationID(calibrationID int64) ([]model.CalibrationFrame, error)
}
