package speed

import (
	"gonum.org/v1/gonum/stat"
)

// Smoother averages the most recent speed estimates of each track
type Smoother struct {
	window  int
	history map[int][]float64
}

// NewSmoother returns a Smoother averaging over window estimates.  A window
// of 1 or less returns every estimate unchanged.
func NewSmoother(window int) *Smoother {

	if window < 1 {
		window = 1
	}

	return &Smoother{
		window:  window,
		history: make(map[int][]float64),
	}
}

// Add records a raw speed for the track and returns the smoothed value
func (s *Smoother) Add(trackID int, mph float64) float64 {

	if s.window == 1 {
		return mph
	}

	vals := append(s.history[trackID], mph)

	if len(vals) > s.window {
		vals = vals[len(vals)-s.window:]
	}

	s.history[trackID] = vals

	return stat.Mean(vals, nil)
}

// Forget drops the history of a track that has ended
func (s *Smoother) Forget(trackID int) {
	delete(s.history, trackID)
}

// Len returns the number of tracks with history
func (s *Smoother) Len() int {
	return len(s.history)
}
