// Package schedule provides the two kinds of deferred work the editor needs:
// debounced callbacks, where a burst of triggers collapses into one call after
// the burst goes quiet, and fixed-interval callbacks.
//
// Callbacks run on their own goroutine. Callers that need single-threaded
// semantics (the editor) take their own lock inside the callback.
package schedule

import (
	"sync"
	"time"
)

// Debouncer delays fn until Trigger has not been called for the configured
// delay. Every Trigger cancels the pending timer and starts a new one, so only
// the last request of a burst executes.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewDebouncer returns a Debouncer that runs fn delay after the last Trigger.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger (re)starts the debounce timer. It is a no-op after Stop.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire runs fn unless a newer Trigger or a Cancel superseded generation gen.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel drops a pending call without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Flush runs a pending call immediately. It reports whether fn ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.timer == nil || d.stopped {
		d.mu.Unlock()
		return false
	}
	d.cancelLocked()
	d.mu.Unlock()
	d.fn()
	return true
}

// Stop cancels any pending call and disables future triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

// SetDelay changes the delay used by subsequent triggers.
func (d *Debouncer) SetDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Interval calls fn every period until Stop.
type Interval struct {
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Every starts calling fn every period on a background goroutine. A
// non-positive period returns an Interval that never fires.
func Every(period time.Duration, fn func()) *Interval {
	iv := &Interval{done: make(chan struct{})}
	if period <= 0 {
		return iv
	}
	iv.wg.Add(1)
	go func() {
		defer iv.wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-iv.done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return iv
}

// Stop halts the interval and waits for an in-flight call to return.
func (iv *Interval) Stop() {
	iv.stopOnce.Do(func() { close(iv.done) })
	iv.wg.Wait()
}
