package ports

import "time"

// Clock abstracts wall time so hold and intent expiry are testable.
// Production wires SystemClock; tests substitute a fixed or stepping clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
