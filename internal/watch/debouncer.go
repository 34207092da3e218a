package watch

import (
	"sync"
	"time"
)

// Reasons a rebuild was requested.
const (
	ReasonChange   = "change"
	ReasonSchedule = "schedule"
)

// Trigger is one rebuild request.
type Trigger struct {
	Reason string
	// Path is the last qualifying path of a change burst.
	Path string
}

// Queue is the single-consumer rebuild queue. It holds at most one pending
// trigger; offers made while one is pending are coalesced into it.
type Queue struct {
	ch chan Trigger
}

// NewQueue returns an empty queue.
func NewQueue() *Queue { return &Queue{ch: make(chan Trigger, 1)} }

// Offer enqueues t unless a trigger is already pending. It never blocks.
func (q *Queue) Offer(t Trigger) bool {
	select {
	case q.ch <- t:
		return true
	default:
		return false
	}
}

// C is the receive side of the queue.
func (q *Queue) C() <-chan Trigger { return q.ch }

// Debouncer turns bursts of changes into a single trigger delivered once no
// change has been seen for the quiet window.
type Debouncer struct {
	window time.Duration
	queue  *Queue

	mu      sync.Mutex
	timer   *time.Timer
	last    string
	stopped bool
}

// NewDebouncer delivers debounced triggers to queue.
func NewDebouncer(window time.Duration, queue *Queue) *Debouncer {
	return &Debouncer{window: window, queue: queue}
}

// Touch records a qualifying change at path and restarts the quiet window.
func (d *Debouncer) Touch(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.last = path
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	path := d.last
	d.timer = nil
	d.mu.Unlock()
	d.queue.Offer(Trigger{Reason: ReasonChange, Path: path})
}

// Stop cancels any pending trigger. Later Touch calls are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
