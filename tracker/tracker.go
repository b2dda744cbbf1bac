package tracker

import (
	"fmt"

	"github.com/JuneshG/Vehicle-Speed-Detection-System/detect"
)

// Params configures a Tracker
type Params struct {
	// Matcher associates current detections with existing tracks
	Matcher Matcher
	// MaxLost is the number of consecutive unmatched frames a track survives.
	// Zero removes unmatched tracks immediately so only the previous frame's
	// vehicles are considered for matching.
	MaxLost int
	// HistorySize is the number of centroids kept per track
	HistorySize int
}

// Observation is a vehicle detected in the current frame and its association
// with the previous frames
type Observation struct {
	// Box is the detected bounding box
	Box detect.Box
	// Centroid is the center point of Box
	Centroid detect.Centroid
	// Track is the track the observation belongs to
	Track *Track
	// Matched is true if the observation was matched to a previously seen
	// vehicle.  A new vehicle has no previous position.
	Matched bool
	// Previous is the matched vehicle's last known centroid
	Previous detect.Centroid
	// Frames is the number of frames between the previous sighting and the
	// current frame, 1 for consecutive frames
	Frames int
}

// Result is the outcome of a Tracker Update
type Result struct {
	// FrameID is the sequence number of the frame, starting from 1
	FrameID int
	// Observations has one entry per input box in the same order
	Observations []Observation
	// Removed lists the IDs of tracks that ended in this update
	Removed []int
}

// Tracker maintains vehicle tracks across frames
type Tracker struct {
	params Params
	// Current frame ID
	frameID int
	// ids assigns unique track IDs
	ids idGenerator
	// tracks are the live (tracked and lost) tracks
	tracks []*Track
}

// New returns a Tracker.  A nil Matcher defaults to Greedy.
func New(p Params) *Tracker {

	if p.Matcher == nil {
		p.Matcher = Greedy{}
	}

	if p.HistorySize < 2 {
		p.HistorySize = 2
	}

	if p.MaxLost < 0 {
		p.MaxLost = 0
	}

	return &Tracker{
		params: p,
	}
}

// Reset clears all tracks
func (t *Tracker) Reset() {
	t.frameID = 0
	t.ids.reset()
	t.tracks = nil
}

// Update matches the vehicles detected in the current frame against the
// live tracks, creates tracks for new vehicles and ages out unmatched ones
func (t *Tracker) Update(boxes []detect.Box) (Result, error) {

	t.frameID++

	res := Result{
		FrameID:      t.frameID,
		Observations: make([]Observation, len(boxes)),
	}

	// snapshot of live track positions before any are updated
	prev := make([]detect.Centroid, len(t.tracks))
	lastFrames := make([]int, len(t.tracks))

	for i, tr := range t.tracks {
		prev[i] = tr.Centroid()
		lastFrames[i] = tr.lastFrame
	}

	cur := make([]detect.Centroid, len(boxes))

	for i, box := range boxes {
		cur[i] = box.Centroid()
	}

	matches, err := t.params.Matcher.Match(prev, cur)

	if err != nil {
		return res, fmt.Errorf("error matching frame %d: %w", t.frameID, err)
	}

	claimed := make([]bool, len(t.tracks))
	var created []*Track

	for i, box := range boxes {

		obs := Observation{
			Box:      box,
			Centroid: cur[i],
		}

		if m := matches[i]; m >= 0 {
			obs.Matched = true
			obs.Previous = prev[m]
			obs.Frames = t.frameID - lastFrames[m]

			// the first observation matched to a track continues it, any
			// others sharing the match start their own track
			if !claimed[m] {
				claimed[m] = true
				t.tracks[m].update(box, t.frameID)
				obs.Track = t.tracks[m]
			}
		}

		if obs.Track == nil {
			obs.Track = newTrack(t.ids.next(), box, t.frameID, t.params.HistorySize)
			created = append(created, obs.Track)
		}

		res.Observations[i] = obs
	}

	live := make([]*Track, 0, len(t.tracks)+len(created))

	for i, tr := range t.tracks {

		if claimed[i] {
			live = append(live, tr)
			continue
		}

		tr.markLost()

		if tr.lost > t.params.MaxLost {
			tr.markRemoved()
			res.Removed = append(res.Removed, tr.id)
			continue
		}

		live = append(live, tr)
	}

	t.tracks = append(live, created...)

	return res, nil
}

// Tracks returns the live tracks
func (t *Tracker) Tracks() []*Track {
	return t.tracks
}

// Snapshot returns the last known centroid of every live track, these are
// the positions the next frame is matched against
func (t *Tracker) Snapshot() []detect.Centroid {

	res := make([]detect.Centroid, len(t.tracks))

	for i, tr := range t.tracks {
		res[i] = tr.Centroid()
	}

	return res
}

// FrameID returns the number of frames processed since creation or Reset
func (t *Tracker) FrameID() int {
	return t.frameID
}
