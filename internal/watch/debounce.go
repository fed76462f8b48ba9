package watch

import (
	"sort"
	"sync"
	"time"
)

// Debouncer collects keys triggered in rapid succession and signals once
// the interval passes without a new trigger
type Debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	stopped bool
	ready   chan struct{}
}

// NewDebouncer creates a new debouncer
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		pending:  make(map[string]struct{}),
		ready:    make(chan struct{}, 1),
	}
}

// Trigger records key and restarts the quiet period
func (d *Debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending[key] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	select {
	case d.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled when a quiet period ends with keys pending
func (d *Debouncer) Ready() <-chan struct{} {
	return d.ready
}

// Drain returns the pending keys in lexical order and clears them
func (d *Debouncer) Drain() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	keys := make([]string, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d.pending = make(map[string]struct{})
	return keys
}

// Stop cancels any pending signal. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[string]struct{})
}
