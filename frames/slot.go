// Package frames - Single-slot frame handoff between a capture loop and the mask pipeline.
package frames

import (
	"sync"

	"go.uber.org/atomic"
)

// Slot is a single-slot mailbox. Publish always succeeds and overwrites an untaken
// value; TryTake never blocks.
//
// The zero value is not usable, construct with NewSlot.
type Slot[T any] struct {
	mu      sync.Mutex
	value   T
	full    bool
	release func(T)

	published atomic.Uint64
	taken     atomic.Uint64
	dropped   atomic.Uint64
}

// Stats is a snapshot of a Slot's counters.
type Stats struct {
	Published uint64 `json:"published"`
	Taken     uint64 `json:"taken"`
	Dropped   uint64 `json:"dropped"`
}

// NewSlot creates an empty slot.
//
// Arguments:
//   - release: Called with a value that is overwritten before being taken or that is
//     still pending on Close. May be nil. gocv callers pass a func that closes the Mat.
//
// Returns:
//   - *Slot[T]: The slot.
func NewSlot[T any](release func(T)) *Slot[T] {
	return &Slot[T]{release: release}
}

// Publish stores v, replacing and releasing any value that was not taken yet.
//
// Arguments:
//   - v: The value to hand off. Ownership passes to the slot.
//
// Returns:
//   - bool: true if an untaken value was dropped.
func (s *Slot[T]) Publish(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.published.Inc()
	dropped := s.full
	if dropped {
		s.dropped.Inc()
		if s.release != nil {
			s.release(s.value)
		}
	}
	s.value = v
	s.full = true
	return dropped
}

// TryTake removes and returns the pending value without blocking.
//
// Returns:
//   - T: The value. Ownership passes to the caller.
//   - bool: false if the slot is empty or a concurrent Publish holds it.
func (s *Slot[T]) TryTake() (T, bool) {
	var zero T
	if !s.mu.TryLock() {
		return zero, false
	}
	defer s.mu.Unlock()

	if !s.full {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.full = false
	s.taken.Inc()
	return v, true
}

// Stats returns the current counters.
func (s *Slot[T]) Stats() Stats {
	return Stats{
		Published: s.published.Load(),
		Taken:     s.taken.Load(),
		Dropped:   s.dropped.Load(),
	}
}

// Close releases a pending value, if any. The slot stays usable.
func (s *Slot[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.full && s.release != nil {
		s.release(s.value)
	}
	var zero T
	s.value = zero
	s.full = false
}
