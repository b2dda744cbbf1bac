package tracker

import (
	"github.com/JuneshG/Vehicle-Speed-Detection-System/detect"
)

// TrackState represents the state of a tracked vehicle
type TrackState int

const (
	// Tracked means the vehicle was matched in the most recent frame
	Tracked TrackState = 1
	// Lost means the vehicle was not seen in the most recent frame but may
	// still be matched again
	Lost TrackState = 2
	// Removed means the vehicle was unmatched for too long and the track is
	// no longer considered for matching
	Removed TrackState = 3
)

// String returns the state name
func (s TrackState) String() string {
	switch s {
	case Tracked:
		return "tracked"
	case Lost:
		return "lost"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Track is a single vehicle followed across frames
type Track struct {
	// id is the unique track identifier, assigned incrementally from 1
	id int
	// state is the current lifecycle state
	state TrackState
	// box is the most recent bounding box of the vehicle
	box detect.Box
	// startFrame is the frame the track was created on
	startFrame int
	// lastFrame is the most recent frame the vehicle was matched on
	lastFrame int
	// lost counts the consecutive frames the vehicle was not matched
	lost int
	// history of centroids, oldest first
	history []detect.Centroid
	// historySize is the maximum number of centroids kept in history
	historySize int
}

// newTrack creates a track from its first observation
func newTrack(id int, box detect.Box, frameID, historySize int) *Track {
	return &Track{
		id:          id,
		state:       Tracked,
		box:         box,
		startFrame:  frameID,
		lastFrame:   frameID,
		history:     []detect.Centroid{box.Centroid()},
		historySize: historySize,
	}
}

// update records a new observation of the vehicle
func (t *Track) update(box detect.Box, frameID int) {

	t.box = box
	t.state = Tracked
	t.lastFrame = frameID
	t.lost = 0

	t.history = append(t.history, box.Centroid())

	// drop oldest point once history is exceeded
	if len(t.history) > t.historySize {
		t.history = t.history[1:]
	}
}

// markLost records a frame where the vehicle was not matched
func (t *Track) markLost() {
	t.state = Lost
	t.lost++
}

// markRemoved ends the track
func (t *Track) markRemoved() {
	t.state = Removed
}

// ID returns the track id
func (t *Track) ID() int {
	return t.id
}

// State returns the track state
func (t *Track) State() TrackState {
	return t.state
}

// Box returns the most recent bounding box
func (t *Track) Box() detect.Box {
	return t.box
}

// Centroid returns the most recent centroid
func (t *Track) Centroid() detect.Centroid {
	return t.history[len(t.history)-1]
}

// Age returns the number of frames since the track was created
func (t *Track) Age(frameID int) int {
	return frameID - t.startFrame
}

// LostFrames returns the number of consecutive frames the track was unmatched
func (t *Track) LostFrames() int {
	return t.lost
}

// History returns the centroid history, oldest first
func (t *Track) History() []detect.Centroid {
	return t.history
}
