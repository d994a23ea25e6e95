package logio

import "sync"

// Shared is a reference-counted handle modeling the "exclusive vs shared"
// ownership states spec.md §3 requires of the Replica and Network handles:
// the Log Manager wraps each value in Shared at construction and hands
// further references to sessions only once recovery succeeds, after which
// the Log Manager and every live session hold a reference. Teardown must block until the last
// reference is released — this is the "reverse-ref-count barrier" design
// note from spec.md §9, modeled on process::Shared<T> from the original
// Mesos implementation (log.cpp includes <process/shared.hpp>).
type Shared[T any] struct {
	mu       sync.Mutex
	value    T
	refs     int
	released chan struct{}
}

// NewShared wraps value with a single outstanding reference, owned by the
// caller. Call Release when that reference is no longer needed.
func NewShared[T any](value T) *Shared[T] {
	return &Shared[T]{value: value, refs: 1, released: make(chan struct{})}
}

// Acquire takes out a new reference and returns the underlying value.
func (s *Shared[T]) Acquire() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs++
	return s.value
}

// Release drops a reference. Any goroutine blocked in WaitUnique is woken so
// it can re-check the count.
func (s *Shared[T]) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs--
	close(s.released)
	s.released = make(chan struct{})
}

// WaitUnique blocks until no references besides the caller's own remain,
// i.e. refs drops to exactly 1 (the caller's). It is the correctness
// barrier Log Manager teardown uses before destroying the Replica/Network:
// the log is not destroyed while any session may still be dispatching
// against it.
func (s *Shared[T]) WaitUnique() {
	for {
		s.mu.Lock()
		if s.refs <= 1 {
			s.mu.Unlock()
			return
		}
		ch := s.released
		s.mu.Unlock()
		<-ch
	}
}

// Value returns the wrapped value without affecting the reference count.
// Safe to call at any time; the value itself is never mutated by Shared.
func (s *Shared[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}
