// Package admission holds the shared in-flight-sequence counter that
// gates whether a scan candidate may be handed to the Executor. Both the
// Scanner (read path) and the Executor (write path, on register and on
// sequence completion) touch the same State under its single mutex.
package admission

import (
	"sync"
	"time"
)

// State tracks how many arbitrage sequences are currently executing and
// when the last one started.
type State struct {
	mu sync.Mutex

	allowMultiple    bool
	maximumSequences int
	minInterval      time.Duration

	current     int
	lastStarted time.Time
}

// New constructs admission state from configuration. maximumSequences=0
// means unlimited.
func New(allowMultiple bool, maximumSequences int, minInterval time.Duration) *State {
	return &State{
		allowMultiple:    allowMultiple,
		maximumSequences: maximumSequences,
		minInterval:      minInterval,
	}
}

// CanAdmit reports whether a new sequence may be started at now, per the
// formula: with multiple sequences disallowed, only when none are
// in-flight; with multiple allowed, only after the minimum interval
// since the last start has elapsed and (if capped) the cap isn't hit.
func (s *State) CanAdmit(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allowMultiple {
		return s.current == 0
	}

	if now.Sub(s.lastStarted) < s.minInterval {
		return false
	}
	if s.maximumSequences == 0 {
		return true
	}
	return s.current < s.maximumSequences
}

// Register records that a new sequence has started at now.
func (s *State) Register(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastStarted = now
	s.current++
}

// Complete records that one in-flight sequence has finished.
func (s *State) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current > 0 {
		s.current--
	}
}

// Current returns the number of sequences currently in flight.
func (s *State) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
