package flow

import "time"

// CancelFunc stops a scheduled callback. Calling it after the callback has
// fired is harmless.
type CancelFunc func()

// Scheduler defers work. The production implementation wraps time.AfterFunc;
// tests substitute a manual scheduler and fire callbacks deterministically.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) CancelFunc
}

type timerScheduler struct{}

// NewScheduler returns a Scheduler backed by the runtime timer wheel.
func NewScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) AfterFunc(d time.Duration, f func()) CancelFunc {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}
