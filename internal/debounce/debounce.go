// Package debounce provides the two input-throttling primitives used by the
// panels: a single-slot cancellable delayed task and a timestamp min-gap gate.
package debounce

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// Option configures a Debouncer or Gate.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock sets the clock used for timers and timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Debouncer runs at most one scheduled task per quiet period. Every Trigger
// cancels the previously scheduled task and starts a new delay.
type Debouncer struct {
	clock clock.Clock
	delay time.Duration

	mu    sync.Mutex
	timer *clock.Timer
	seq   uint64
}

// New creates a Debouncer with the given quiet period.
func New(delay time.Duration, opts ...Option) *Debouncer {
	o := buildOptions(opts)
	return &Debouncer{clock: o.clock, delay: delay}
}

// Delay returns the configured quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger schedules fn after the quiet period, replacing any pending task.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.seq++
	mine := d.seq
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A timer that fired while being replaced must not run.
		if d.seq != mine || d.timer == nil {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending task, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.seq++
}

// Pending reports whether a task is scheduled and has not run yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
