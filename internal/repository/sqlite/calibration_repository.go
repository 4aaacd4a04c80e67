package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"charucocalib/internal/dto"
	"charucocalib/internal/model"
	"charucocalib/internal/repository"
)

const calibrationColumns = `id, video_path, squares_x, squares_y, square_length, marker_length, dictionary,
	policy, frames_total, frames_accepted, success, width, height, rms, fx, fy, cx, cy,
	dist_coeffs, artifact_path, error, created_at`

// CalibrationRepository implements repository.CalibrationRepository for SQLite.
type CalibrationRepository struct {
	db *DB
}

// NewCalibrationRepository creates a new SQLite calibration repository.
func NewCalibrationRepository(db *DB) *CalibrationRepository {
	return &CalibrationRepository{db: db}
}

// Insert adds a new calibration record to the database. A zero CreatedAt is set to now.
func (r *CalibrationRepository) Insert(c *model.Calibration) (int64, error) {
	dist, err := json.Marshal(nonNil(c.DistCoeffs))
	if err != nil {
		return 0, fmt.Errorf("failed to encode distortion coefficients: %w", err)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO calibrations (video_path, squares_x, squares_y, square_length, marker_length, dictionary,
			policy, frames_total, frames_accepted, success, width, height, rms, fx, fy, cx, cy,
			dist_coeffs, artifact_path, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.VideoPath, c.SquaresX, c.SquaresY, c.SquareLength, c.MarkerLength, c.Dictionary,
		c.Policy, c.FramesTotal, c.FramesAccepted, c.Success, c.Width, c.Height, c.RMS, c.Fx, c.Fy, c.Cx, c.Cy,
		string(dist), c.ArtifactPath, c.Error, c.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert calibration: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read calibration id: %w", err)
	}
	c.ID = id
	return id, nil
}

// GetByID retrieves a calibration by its ID.
func (r *CalibrationRepository) GetByID(id int64) (*model.Calibration, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+calibrationColumns+` FROM calibrations WHERE id = ?`, id)
	c, err := scanCalibration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calibration: %w", err)
	}
	return c, nil
}

// Latest returns the most recent successful calibration.
func (r *CalibrationRepository) Latest() (*model.Calibration, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT ` + calibrationColumns + `
		FROM calibrations WHERE success = 1
		ORDER BY created_at DESC, id DESC LIMIT 1`)
	c, err := scanCalibration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest calibration: %w", err)
	}
	return c, nil
}

// GetAll retrieves calibrations based on filter criteria, newest first.
func (r *CalibrationRepository) GetAll(filter *dto.CalibrationFilter) ([]model.Calibration, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `SELECT ` + calibrationColumns + ` FROM calibrations` + where + ` ORDER BY created_at DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibrations: %w", err)
	}
	defer rows.Close()

	var calibrations []model.Calibration
	for rows.Next() {
		c, err := scanCalibration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calibration: %w", err)
		}
		calibrations = append(calibrations, *c)
	}
	return calibrations, rows.Err()
}

// GetTotalCount returns the total count of calibrations matching the filter.
func (r *CalibrationRepository) GetTotalCount(filter *dto.CalibrationFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM calibrations`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count calibrations: %w", err)
	}
	return count, nil
}

// ExistsByArtifact checks if a calibration was already recorded for the artifact path.
func (r *CalibrationRepository) ExistsByArtifact(path string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM calibrations WHERE artifact_path = ?`, path).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check calibration existence: %w", err)
	}
	return count > 0, nil
}

// Delete removes a calibration and its frames.
func (r *CalibrationRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM calibration_frames WHERE calibration_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete calibration frames: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM calibrations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete calibration: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return tx.Commit()
}

// filterClause builds the WHERE clause shared by GetAll and GetTotalCount.
func filterClause(filter *dto.CalibrationFilter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}
	where := " WHERE 1=1"
	args := []interface{}{}

	if filter.Success != nil {
		where += " AND success = ?"
		args = append(args, *filter.Success)
	}
	if filter.Video != "" {
		where += " AND video_path LIKE ?"
		args = append(args, "%"+filter.Video+"%")
	}
	return where, args
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCalibration(s scanner) (*model.Calibration, error) {
	var c model.Calibration
	var dist string
	err := s.Scan(&c.ID, &c.VideoPath, &c.SquaresX, &c.SquaresY, &c.SquareLength, &c.MarkerLength, &c.Dictionary,
		&c.Policy, &c.FramesTotal, &c.FramesAccepted, &c.Success, &c.Width, &c.Height, &c.RMS, &c.Fx, &c.Fy, &c.Cx, &c.Cy,
		&dist, &c.ArtifactPath, &c.Error, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dist), &c.DistCoeffs); err != nil {
		return nil, fmt.Errorf("bad distortion coefficients %q: %w", dist, err)
	}
	return &c, nil
}

func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
