package shutdown

import (
	"os"
	"sync"
)

// signalGate turns a stream of OS signals into a graceful request on the
// first one and a forced exit on the second.
type signalGate struct {
	mu      sync.Mutex
	seen    int
	onFirst func(os.Signal)
	onForce func(os.Signal)
}

// handle processes one signal and reports how many have been seen.
func (g *signalGate) handle(sig os.Signal) int {
	g.mu.Lock()
	g.seen++
	n := g.seen
	g.mu.Unlock()

	switch {
	case n == 1 && g.onFirst != nil:
		g.onFirst(sig)
	case n > 1 && g.onForce != nil:
		g.onForce(sig)
	}
	return n
}
