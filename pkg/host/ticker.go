package host

import "time"

const (
	// DefaultInterval is the simulation step length (60 ticks per second).
	DefaultInterval = time.Second / 60
	// DefaultMaxSteps caps how many ticks one frame may catch up on.
	DefaultMaxSteps = 10
)

// Ticker converts wall-clock frame times into a whole number of fixed-length
// simulation ticks.
type Ticker struct {
	Interval time.Duration
	MaxSteps int

	elapsed time.Duration
}

func DefaultTicker() *Ticker {
	return &Ticker{Interval: DefaultInterval, MaxSteps: DefaultMaxSteps}
}

// Advance adds dt to the accumulator and returns the number of ticks due.
// If the accumulator still holds a full interval after MaxSteps ticks the
// backlog is dropped instead of carried into the next frame.
func (t *Ticker) Advance(dt time.Duration) int {
	if t.Interval <= 0 {
		return 0
	}
	if dt > 0 {
		t.elapsed += dt
	}

	steps := int(t.elapsed / t.Interval)
	if t.MaxSteps > 0 && steps > t.MaxSteps {
		steps = t.MaxSteps
	}

	t.elapsed -= time.Duration(steps) * t.Interval
	if t.elapsed >= t.Interval {
		t.elapsed = 0
	}
	return steps
}

// Pending returns the time accumulated towards the next tick.
func (t *Ticker) Pending() time.Duration {
	return t.elapsed
}

func (t *Ticker) Reset() {
	t.elapsed = 0
}
