package eventlog

import "time"

// Clock supplies the current time to the cooldown logic
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock reading the wall clock
type SystemClock struct{}

// Now returns the current local time
func (SystemClock) Now() time.Time {
	return time.Now()
}
