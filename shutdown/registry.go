package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"spooktrunt/core"
)

type hook struct {
	name     string
	priority int
	seq      int
	fn       core.ShutdownFunc
}

// Hooks is an ordered set of cleanup functions. Lower priorities run first;
// equal priorities run in registration order.
//
// Typical priorities:
//   - 0-9: stop accepting traffic (HTTP server)
//   - 10-19: close sessions and sockets
//   - 20-29: release provider clients
//   - 30+: flush logs
type Hooks struct {
	mu    sync.Mutex
	hooks []hook
	ran   bool
}

// Add registers fn. Additions after Run are ignored.
func (h *Hooks) Add(name string, priority int, fn core.ShutdownFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ran {
		return
	}
	h.hooks = append(h.hooks, hook{name: name, priority: priority, seq: len(h.hooks), fn: fn})
}

func (h *Hooks) sortedLocked() []hook {
	out := append([]hook(nil), h.hooks...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority < out[j].priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Names returns hook names in execution order.
func (h *Hooks) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var names []string
	for _, e := range h.sortedLocked() {
		names = append(names, e.name)
	}
	return names
}

// Run calls every hook once, in order, even when some fail. The returned
// error joins each failure, prefixed by the hook name. Run is idempotent.
func (h *Hooks) Run(ctx context.Context) error {
	h.mu.Lock()
	if h.ran {
		h.mu.Unlock()
		return nil
	}
	h.ran = true
	ordered := h.sortedLocked()
	h.mu.Unlock()

	var errs []error
	for _, e := range ordered {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}
