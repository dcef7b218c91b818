// Package debounce collapses bursts of change notifications into one call
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay groups the events of a typical editor save or ConfigMap update
const DefaultDelay = 500 * time.Millisecond

// Debouncer calls fn once, delay after the last Trigger of a burst
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

// New creates a debouncer. A non positive delay uses DefaultDelay.
func New(delay time.Duration, fn func()) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Delay returns the quiet period awaited before calling fn
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger restarts the quiet period. It is a no-op after Stop.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels a pending call
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
