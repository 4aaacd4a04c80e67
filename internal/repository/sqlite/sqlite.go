package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection with thread-safe access.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New creates and initializes a new SQLite database connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS calibrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		video_path TEXT NOT NULL,
		squares_x INTEGER NOT NULL,
		squares_y INTEGER NOT NULL,
		square_length REAL NOT NULL,
		marker_length REAL NOT NULL,
		dictionary TEXT NOT NULL,
		policy TEXT NOT NULL,
		frames_total INTEGER DEFAULT 0,
		frames_accepted INTEGER DEFAULT 0,
		success INTEGER NOT NULL DEFAULT 0,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		rms REAL DEFAULT 0,
		fx REAL DEFAULT 0,
		fy REAL DEFAULT 0,
		cx REAL DEFAULT 0,
		cy REAL DEFAULT 0,
		dist_coeffs TEXT NOT NULL DEFAULT '[]',
		artifact_path TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS calibration_frames (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		calibration_id INTEGER NOT NULL,
		frame_index INTEGER NOT NULL,
		corners INTEGER DEFAULT 0,
		accepted INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (calibration_id) REFERENCES calibrations(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_calibrations_created_at ON calibrations(created_at);
	CREATE INDEX IF NOT EXISTS idx_calibrations_video_path ON calibrations(video_path);
	CREATE INDEX IF NOT EXISTS idx_calibration_frames_calibration_id ON calibration_frames(calibration_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}
