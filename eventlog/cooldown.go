package eventlog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Policy selects how cooldown windows are keyed
type Policy string

const (
	// PolicyGlobal shares one cooldown window between all events
	PolicyGlobal Policy = "global"
	// PolicyPlate keeps a cooldown window per plate text
	PolicyPlate Policy = "plate"
	// PolicyTrack keeps a cooldown window per vehicle track
	PolicyTrack Policy = "track"
)

// State is the cooldown state of a key
type State int

const (
	// Ready means the next candidate will be written
	Ready State = iota
	// Cooling means candidates are dropped until the interval elapses
	Cooling
)

// String returns the state name
func (s State) String() string {
	if s == Cooling {
		return "cooling"
	}
	return "ready"
}

// Decision is the outcome of offering a candidate
type Decision int

const (
	// Suppressed means the candidate arrived during the cooldown window and
	// was dropped
	Suppressed Decision = iota
	// Logged means the candidate was written to the store
	Logged
)

// String returns the decision name
func (d Decision) String() string {
	if d == Logged {
		return "logged"
	}
	return "suppressed"
}

// Candidate is an over limit vehicle with a plausible plate offered for
// logging
type Candidate struct {
	TrackID  int
	SpeedMPH float64
	Plate    string
}

// Cooldown writes candidates to a Store at most once per interval for each
// key of its policy.  Under PolicyGlobal a write blocks every other candidate
// for the interval regardless of vehicle or plate.
type Cooldown struct {
	store    Store
	clock    Clock
	interval time.Duration
	policy   Policy
	// last accepted write time per key
	last map[string]time.Time
}

// NewCooldown returns a Cooldown writing to store.  A nil clock uses the
// system clock.
func NewCooldown(store Store, clock Clock, interval time.Duration, policy Policy) (*Cooldown, error) {

	switch policy {
	case PolicyGlobal, PolicyPlate, PolicyTrack:
	case "":
		policy = PolicyGlobal
	default:
		return nil, fmt.Errorf("unknown cooldown policy %q", policy)
	}

	if interval < 0 {
		return nil, fmt.Errorf("cooldown interval must not be negative, got %s", interval)
	}

	if clock == nil {
		clock = SystemClock{}
	}

	return &Cooldown{
		store:    store,
		clock:    clock,
		interval: interval,
		policy:   policy,
		last:     make(map[string]time.Time),
	}, nil
}

// key returns the cooldown window key for the candidate
func (c *Cooldown) key(cand Candidate) string {

	switch c.policy {
	case PolicyPlate:
		return cand.Plate
	case PolicyTrack:
		return strconv.Itoa(cand.TrackID)
	}

	return ""
}

// state returns the state of key at time now
func (c *Cooldown) state(key string, now time.Time) State {

	last, ok := c.last[key]

	if !ok || now.Sub(last) >= c.interval {
		return Ready
	}

	return Cooling
}

// State returns the current cooldown state for the candidate's key
func (c *Cooldown) State(cand Candidate) State {
	return c.state(c.key(cand), c.clock.Now())
}

// Offer writes the candidate if its key is Ready.  A successful write moves
// the key to Cooling, a failed write leaves it Ready and returns the error.
// Candidates arriving while Cooling are dropped without extending the
// window.
func (c *Cooldown) Offer(ctx context.Context, cand Candidate) (Decision, error) {

	now := c.clock.Now()
	key := c.key(cand)

	if c.state(key, now) == Cooling {
		return Suppressed, nil
	}

	entry := Entry{
		ID:        uuid.New(),
		Timestamp: now,
		SpeedMPH:  cand.SpeedMPH,
		Plate:     cand.Plate,
		TrackID:   cand.TrackID,
	}

	if err := c.store.Append(ctx, entry); err != nil {
		return Suppressed, fmt.Errorf("error appending event: %w", err)
	}

	c.last[key] = now
	c.prune(now)

	return Logged, nil
}

// prune drops keys whose window has elapsed so keyed policies do not grow
// without bound
func (c *Cooldown) prune(now time.Time) {

	if c.policy == PolicyGlobal {
		return
	}

	for k, last := range c.last {
		if now.Sub(last) >= c.interval {
			delete(c.last, k)
		}
	}
}
