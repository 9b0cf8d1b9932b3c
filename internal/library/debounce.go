package library

import (
	"strings"
	"sync"
	"time"
)

// Debouncer coalesces bursts of events per key: scheduling a key that is
// already pending cancels the old timer and starts a new one, so only the
// last call in a burst runs, delay after the burst ends.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*debounced
	stopped bool
}

type debounced struct {
	timer *time.Timer
	fn    func()
}

// NewDebouncer creates a debouncer firing delay after the last event.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, pending: make(map[string]*debounced)}
}

// Schedule arranges for fn to run after the delay unless key is scheduled
// again, cancelled or flushed first.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}
	entry := &debounced{fn: fn}
	entry.timer = time.AfterFunc(d.delay, func() { d.fire(key, entry) })
	d.pending[key] = entry
}

func (d *Debouncer) fire(key string, entry *debounced) {
	d.mu.Lock()
	if d.pending[key] != entry {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()
	entry.fn()
}

// Cancel drops the pending call for key, reporting whether one existed.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.pending[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(d.pending, key)
	return true
}

// CancelPrefix drops every pending call whose key starts with prefix.
func (d *Debouncer) CancelPrefix(prefix string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for key, entry := range d.pending {
		if strings.HasPrefix(key, prefix) {
			entry.timer.Stop()
			delete(d.pending, key)
			n++
		}
	}
	return n
}

// FlushPrefix runs every pending call whose key starts with prefix now, on
// the calling goroutine.
func (d *Debouncer) FlushPrefix(prefix string) int {
	d.mu.Lock()
	var due []func()
	for key, entry := range d.pending {
		if strings.HasPrefix(key, prefix) {
			entry.timer.Stop()
			delete(d.pending, key)
			due = append(due, entry.fn)
		}
	}
	d.mu.Unlock()

	for _, fn := range due {
		fn()
	}
	return len(due)
}

// Flush runs every pending call now.
func (d *Debouncer) Flush() int {
	return d.FlushPrefix("")
}

// Pending returns the number of scheduled calls.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels everything and ignores later Schedule calls.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, entry := range d.pending {
		entry.timer.Stop()
		delete(d.pending, key)
	}
}
