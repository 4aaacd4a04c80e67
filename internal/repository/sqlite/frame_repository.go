package sqlite

import (
	"fmt"

	"charucocalib/internal/model"
)

// FrameRepository implements repository.FrameRepository for SQLite.
type FrameRepository struct {
	db *DB
}

// NewFrameRepository creates a new SQLite frame repository.
func NewFrameRepository(db *DB) *FrameRepository {
	return &FrameRepository{db: db}
}

// InsertBatch adds the frames of one calibration in a single transaction.
func (r *FrameRepository) InsertBatch(calibrationID int64, frames []model.CalibrationFrame) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO calibration_frames (calibration_id, frame_index, corners, accepted)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range frames {
		if _, err := stmt.Exec(calibrationID, f.FrameIndex, f.Corners, f.Accepted); err != nil {
			return fmt.Errorf("failed to insert frame %d: %w", f.FrameIndex, err)
		}
	}

	return tx.Commit()
}

// GetByCalibrationID retrieves the frames of a calibration in frame order.
func (r *FrameRepository) GetByCalibrationID(calibrationID int64) ([]model.CalibrationFrame, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, calibration_id, frame_index, corners, accepted
		FROM calibration_frames WHERE calibration_id = ?
		ORDER BY frame_index
	`, calibrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var frames []model.CalibrationFrame
	for rows.Next() {
		var f model.CalibrationFrame
		if err := rows.Scan(&f.ID, &f.CalibrationID, &f.FrameIndex, &f.Corners, &f.Accepted); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		frames = append(frames, f)
	}

	return frames, rows.Err()
}
