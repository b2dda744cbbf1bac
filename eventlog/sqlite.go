package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists entries to a speed_events table
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database file and creates the schema
func NewSQLiteStore(path string) (*SQLiteStore, error) {

	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// migrate creates the tables and indexes
func (s *SQLiteStore) migrate() error {

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS speed_events (
			id TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			speed_mph REAL NOT NULL,
			plate TEXT NOT NULL,
			track_id INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_speed_events_time ON speed_events(timestamp DESC)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Append inserts the entry
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {

	query := `INSERT INTO speed_events (id, timestamp, speed_mph, plate, track_id)
		VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, e.ID.String(), e.Timestamp.UnixNano(),
		e.SpeedMPH, e.Plate, e.TrackID)

	if err != nil {
		return fmt.Errorf("failed to insert speed event: %w", err)
	}

	return nil
}

// Recent returns the most recent n entries, newest first
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Entry, error) {

	query := `SELECT id, timestamp, speed_mph, plate, track_id
		FROM speed_events ORDER BY timestamp DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, n)

	if err != nil {
		return nil, fmt.Errorf("failed to query speed events: %w", err)
	}

	defer rows.Close()

	var res []Entry

	for rows.Next() {

		var (
			id string
			ts int64
			e  Entry
		)

		if err := rows.Scan(&id, &ts, &e.SpeedMPH, &e.Plate, &e.TrackID); err != nil {
			return nil, fmt.Errorf("failed to scan speed event: %w", err)
		}

		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid speed event id %q: %w", id, err)
		}

		e.Timestamp = time.Unix(0, ts)
		res = append(res, e)
	}

	return res, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
