// Package debounce coalesces bursts of edit signals into single calls.
package debounce

import (
	"sync"
	"time"
)

// DefaultInterval is the quiet period used when none is given
const DefaultInterval = 4 * time.Millisecond

// Debouncer delays calls to fn until no new value has arrived for the
// interval, then calls fn once with the latest value (trailing edge).
//
// All methods are safe for concurrent use. fn is never called concurrently
// with itself.
type Debouncer[T any] struct {
	mu       sync.Mutex
	run      sync.Mutex // held while fn executes
	interval time.Duration
	timer    *time.Timer
	pending  bool
	latest   T
	seq      uint64 // detects stale timer callbacks
	fn       func(T)
}

// New creates a debouncer. A non-positive interval means DefaultInterval.
func New[T any](interval time.Duration, fn func(T)) *Debouncer[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Debouncer[T]{
		interval: interval,
		fn:       fn,
	}
}

// Interval returns the quiet period
func (d *Debouncer[T]) Interval() time.Duration {
	return d.interval
}

// Call records value as the latest and restarts the quiet period. A pending
// call is replaced, never queued behind.
func (d *Debouncer[T]) Call(value T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.latest = value
	d.pending = true
	d.seq++
	currentSeq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		d.fire(currentSeq)
	})
}

// fire runs fn if seq still names the most recent schedule
func (d *Debouncer[T]) fire(seq uint64) {
	d.run.Lock()
	defer d.run.Unlock()

	d.mu.Lock()
	if !d.pending || d.seq != seq || d.fn == nil {
		d.mu.Unlock()
		return
	}
	value := d.latest
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn(value)
}

// Flush runs a pending call immediately instead of waiting for the timer
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	currentSeq := d.seq
	d.mu.Unlock()

	d.fire(currentSeq)
}

// Stop cancels any pending call
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = false
}

// Pending reports whether a call is waiting for its quiet period
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
