// Package shutdown drains the studio on exit: it stops accepting new
// generation work, waits for operations already talking to a provider and
// then runs the registered cleanup hooks in priority order.
package shutdown

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrClosed is returned when work is offered after draining has begun.
var ErrClosed = errors.New("shutdown: no new operations accepted")

// ErrDrainTimeout is returned when operations are still running at the deadline.
var ErrDrainTimeout = errors.New("shutdown: operations still running at deadline")

// Tracker counts in-flight operations by name.
//
// Usage:
//
//	if err := tracker.Begin("summon"); err != nil {
//	    return err // draining
//	}
//	defer tracker.End("summon")
type Tracker struct {
	mu      sync.Mutex
	active  map[string]int
	total   int
	closed  bool
	drained chan struct{}
}

// NewTracker creates an open tracker.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]int)}
}

// Begin registers a new operation. It fails with ErrClosed once Close has
// been called.
func (t *Tracker) Begin(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.active[name]++
	t.total++
	return nil
}

// End marks one operation named name as finished.
// Must be called exactly once for each successful Begin.
func (t *Tracker) End(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active[name] <= 1 {
		delete(t.active, name)
	} else {
		t.active[name]--
	}
	t.total--
	if t.total == 0 && t.drained != nil {
		close(t.drained)
		t.drained = nil
	}
}

// Close stops Begin from accepting operations. Running operations continue.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// Closed reports whether Close has been called.
func (t *Tracker) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Count returns the number of running operations.
func (t *Tracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64(t.total)
}

// Pending returns the names of running operations, sorted, one per operation.
func (t *Tracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var names []string
	for name, n := range t.active {
		for i := 0; i < n; i++ {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Drain blocks until no operation is running or timeout elapses.
func (t *Tracker) Drain(timeout time.Duration) error {
	t.mu.Lock()
	if t.total == 0 {
		t.mu.Unlock()
		return nil
	}
	if t.drained == nil {
		t.drained = make(chan struct{})
	}
	drained := t.drained
	t.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-drained:
		return nil
	case <-timer.C:
		return ErrDrainTimeout
	}
}
