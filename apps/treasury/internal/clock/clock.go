package clock

import "time"

// Clock abstracts time for the scheduler and pipeline stages so that
// due-time and delay-window logic is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// System returns a Clock backed by time.Now.
func System() Clock {
	return systemClock{}
}
