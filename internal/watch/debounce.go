package watch

import (
	"sync"
	"time"
)

// Debouncer collapses a burst of triggers into a single notification, delivered once no
// trigger has arrived for the configured delay. Notifications go to a one-slot queue;
// when the slot is taken the new notification merges with the pending one.
type Debouncer struct {
	delay time.Duration
	ch    chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a Debouncer with the given quiet window.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, ch: make(chan struct{}, 1)}
}

// C returns the notification channel.
func (d *Debouncer) C() <-chan struct{} {
	return d.ch
}

// Trigger restarts the quiet window. It never blocks.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	select {
	case d.ch <- struct{}{}:
	default:
	}
}

// Stop cancels a pending notification. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
