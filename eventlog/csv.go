package eventlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

// csvHeader is the first row of a new log file
var csvHeader = []string{"Timestamp", "Speed (MPH)", "License Plate"}

// CSVStore appends entries as rows of a CSV file
type CSVStore struct {
	path string
	file *os.File
	w    *csv.Writer
	sync.Mutex
}

// NewCSVStore opens the log file for appending, creating it with a header
// row when it does not exist or is empty
func NewCSVStore(path string) (*CSVStore, error) {

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)

	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}

	info, err := f.Stat()

	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error reading log file info: %w", err)
	}

	s := &CSVStore{
		path: path,
		file: f,
		w:    csv.NewWriter(f),
	}

	if info.Size() == 0 {
		if err := s.write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("error writing log header: %w", err)
		}
	}

	return s, nil
}

// Append writes the entry as a row and flushes it to the file
func (s *CSVStore) Append(ctx context.Context, e Entry) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	return s.write([]string{
		e.Timestamp.Format(TimeFormat),
		fmt.Sprintf("%.1f", e.SpeedMPH),
		e.Plate,
	})
}

// write a single record and flush it
func (s *CSVStore) write(record []string) error {

	if err := s.w.Write(record); err != nil {
		return err
	}

	s.w.Flush()

	return s.w.Error()
}

// Path returns the log file location
func (s *CSVStore) Path() string {
	return s.path
}

// Close flushes and closes the log file
func (s *CSVStore) Close() error {

	s.Lock()
	defer s.Unlock()

	s.w.Flush()

	if err := s.w.Error(); err != nil {
		s.file.Close()
		return err
	}

	return s.file.Close()
}
