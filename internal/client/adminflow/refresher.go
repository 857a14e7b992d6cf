package adminflow

import (
	"sync"
	"time"
)

const DefaultDebounce = 250 * time.Millisecond

// Refresher coalesces refresh triggers: the first Trigger arms a timer and
// every Trigger before it fires is folded into the same run.
type Refresher struct {
	delay time.Duration
	fn    func()

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

func NewRefresher(delay time.Duration, fn func()) *Refresher {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Refresher{delay: delay, fn: fn}
}

func (r *Refresher) Trigger() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.timer != nil {
		return
	}
	r.timer = time.AfterFunc(r.delay, r.fire)
}

func (r *Refresher) fire() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.mu.Unlock()

	r.fn()
}

// Close cancels a pending run. Later triggers are ignored.
func (r *Refresher) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
