// Package clock abstracts wall time and timer scheduling so the quiz engine
// can run against real time in production and a manually advanced clock in tests.
package clock

import (
	"sync"
	"time"
)

// CancelFunc stops a scheduled callback. Calling it more than once is safe.
type CancelFunc func()

// Clock supplies the current time and schedules callbacks.
type Clock interface {
	Now() time.Time
	// ScheduleRepeating invokes fn every interval until cancelled.
	ScheduleRepeating(interval time.Duration, fn func()) CancelFunc
	// AfterFunc invokes fn once after d.
	AfterFunc(d time.Duration, fn func()) CancelFunc
}

// Real is a Clock backed by the time package. Callbacks run on their own goroutines.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) ScheduleRepeating(interval time.Duration, fn func()) CancelFunc {
	ticker := time.NewTicker(interval)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-stop:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(stop)
		})
	}
}

func (Real) AfterFunc(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
