package carousel

import "time"

// Clock schedules one-shot callbacks. Controllers never read wall time, so a
// Clock is all a test needs to drive them deterministically.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock runs callbacks on the runtime timer heap.
var SystemClock Clock = systemClock{}
