// Package clock provides an injectable time source so that every
// time-dependent rule in the workflow engines can be tested
// deterministically. Services hold a Clock and pass now() into the
// domain predicates; nothing below the handler layer reads the system
// clock directly.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Real returns a Clock backed by the system clock (UTC).
func Real() Clock { return realClock{} }

// Fixed returns a Clock frozen at t.
func Fixed(t time.Time) Clock { return fixedClock{t: t} }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// Stepped is a mutable test clock. It starts at a given instant and can
// be advanced explicitly; safe for concurrent use.
type Stepped struct {
	mu sync.Mutex
	t  time.Time
}

// NewStepped returns a Stepped clock starting at t.
func NewStepped(t time.Time) *Stepped { return &Stepped{t: t} }

func (s *Stepped) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t
}

// Advance moves the clock forward by d and returns the new time.
func (s *Stepped) Advance(d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t = s.t.Add(d)
	return s.t
}

// Set moves the clock to t.
func (s *Stepped) Set(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t = t
}
