package clock

import "sync"

// Lamport is a process-local logical clock. Every participant in the
// protocol (aggregator, publisher, reader) owns exactly one.
//
// The clock has its own mutex so that advancing it is never blocked by
// store contention: a request must advance the clock exactly once no
// matter what it ends up doing to the store.
type Lamport struct {
	mu      sync.Mutex
	counter int
}

// New returns a clock starting at zero.
func New() *Lamport {
	return &Lamport{}
}

// Tick increments the clock for a local event and returns the new value.
func (l *Lamport) Tick() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counter++
	return l.counter
}

// Observe merges a clock value received from a peer: the local counter
// becomes max(local, remote)+1. Returns the new value.
func (l *Lamport) Observe(remote int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if remote > l.counter {
		l.counter = remote
	}
	l.counter++
	return l.counter
}

// Current returns the clock value without advancing it.
func (l *Lamport) Current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counter
}
