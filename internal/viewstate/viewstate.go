// Package viewstate guards in-memory view snapshots against stale writes.
//
// Fetches for the same target can overlap when the user switches
// categories quickly. Each fetch takes a sequence number; only the result
// carrying the latest number may be applied, so a slow response can never
// overwrite state written by a newer request. Requests are not cancelled,
// their results are simply discarded after the fact.
package viewstate

import (
	"context"
	"sync"
	"time"
)

// Gate is a sequence-numbered holder for one snapshot of type T.
type Gate[T any] struct {
	mu       sync.Mutex
	seq      uint64
	applied  uint64
	snapshot T
	hasValue bool
}

// NewGate returns an empty gate.
func NewGate[T any]() *Gate[T] {
	return &Gate[T]{}
}

// Begin registers a new fetch and returns its sequence number.
func (g *Gate[T]) Begin() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return g.seq
}

// Apply stores the snapshot if seq is still the latest issued sequence.
// It reports whether the snapshot was applied.
func (g *Gate[T]) Apply(seq uint64, snapshot T) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if seq != g.seq {
		return false
	}
	g.snapshot = snapshot
	g.applied = seq
	g.hasValue = true
	return true
}

// Current returns the latest applied snapshot, if any.
func (g *Gate[T]) Current() (T, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot, g.hasValue
}

// Poll calls check at a fixed interval until it reports true, the attempt
// cap is reached, or the context is done. It mirrors the bounded retry
// used to wait for asynchronously rendered content: the caller is not
// signaled when the target appears, so it looks again a bounded number
// of times.
func Poll(ctx context.Context, attempts int, interval time.Duration, check func() bool) bool {
	for i := 0; i < attempts; i++ {
		if check() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
	return check()
}
