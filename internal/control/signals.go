// Package control implements the cooperative cancellation contract
// shared by the poll loop and the dashboard: a "stop" trigger and an
// "update-then-restart" trigger, both observed inside every wait so a
// request is honored within one polling tick instead of after a full
// sleep or backoff.
package control

import (
	"sync/atomic"
	"time"
)

// Granularity is the polling step used by interruptible waits.
const Granularity = 200 * time.Millisecond

// Signals carries the stop and update triggers. The zero value is not
// usable; construct with New.
type Signals struct {
	stop   atomic.Bool
	update atomic.Bool
}

func New() *Signals {
	return &Signals{}
}

// RequestStop asks the poll loop to halt before its next cycle.
func (s *Signals) RequestStop() {
	s.stop.Store(true)
}

// RequestUpdate asks the poll loop to halt and the process to run the
// update-and-relaunch sequence after the loop exits.
func (s *Signals) RequestUpdate() {
	s.update.Store(true)
	s.stop.Store(true)
}

func (s *Signals) StopRequested() bool {
	return s.stop.Load()
}

func (s *Signals) UpdateRequested() bool {
	return s.update.Load()
}

// Interrupted reports whether either trigger has been raised.
func (s *Signals) Interrupted() bool {
	return s.stop.Load() || s.update.Load()
}

// Sleep waits for d, checking the triggers every Granularity. It
// returns false when the wait was cut short by a trigger.
func (s *Signals) Sleep(d time.Duration) bool {
	remaining := d
	for remaining > 0 {
		if s.Interrupted() {
			return false
		}
		step := Granularity
		if remaining < step {
			step = remaining
		}
		time.Sleep(step)
		remaining -= step
	}
	return !s.Interrupted()
}
