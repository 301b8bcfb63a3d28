package player

import "time"

// Stopper cancels a scheduled callback.
type Stopper interface {
	Stop() bool
}

// Clock schedules one-shot callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// SystemClock is backed by time.AfterFunc.
var SystemClock Clock = systemClock{}

// timer is a restartable one-shot owned by a player. Its callback runs through
// the player's executor and is dropped when the timer was restarted, cancelled
// or closed after scheduling. Start, Cancel and Close must be called from the
// executor as well.
type timer struct {
	clock  Clock
	exec   func(func())
	stop   Stopper
	gen    uint64
	closed bool
}

func newTimer(clock Clock, exec func(func())) *timer {
	return &timer{clock: clock, exec: exec}
}

// Start (re)arms the timer.
func (t *timer) Start(d time.Duration, fn func()) {
	if t.closed {
		return
	}
	t.Cancel()
	gen := t.gen
	t.stop = t.clock.AfterFunc(d, func() {
		t.exec(func() {
			if t.closed || t.gen != gen {
				return
			}
			t.stop = nil
			t.gen++
			fn()
		})
	})
}

// Cancel drops the pending callback, if any.
func (t *timer) Cancel() {
	t.gen++
	if t.stop != nil {
		t.stop.Stop()
		t.stop = nil
	}
}

// Pending reports whether a callback is armed.
func (t *timer) Pending() bool {
	return t.stop != nil
}

// Close cancels the timer for good.
func (t *timer) Close() {
	t.Cancel()
	t.closed = true
}
