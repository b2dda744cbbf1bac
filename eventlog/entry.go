// Package eventlog records over limit vehicle events to durable stores with
// a cooldown that suppresses repeated writes.
package eventlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TimeFormat is the layout of timestamps written to the CSV log
const TimeFormat = "2006-01-02 15:04:05"

// Entry is a single speed event
type Entry struct {
	// ID uniquely identifies the event
	ID uuid.UUID
	// Timestamp is when the event was accepted
	Timestamp time.Time
	// SpeedMPH is the measured vehicle speed
	SpeedMPH float64
	// Plate is the recognised license plate text
	Plate string
	// TrackID is the tracker identifier of the vehicle
	TrackID int
}

// Store persists entries
type Store interface {
	// Append durably writes the entry
	Append(ctx context.Context, e Entry) error
	// Close releases the store
	Close() error
}
