package browser

import (
	"sync"
	"time"
)

// SessionState tracks a session through its lifecycle.
type SessionState int

const (
	// StateActive means the session is borrowed and in use.
	StateActive SessionState = iota

	// StateIdle means the session is alive but has not been touched
	// recently.
	StateIdle

	// StateClosing means teardown has started.
	StateClosing

	// StateClosed means the capability handle has been released.
	StateClosed
)

// String returns the lowercase state name.
func (s SessionState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateIdle:
		return "idle"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one pooled browsing session. It is owned exclusively by the
// Pool; callers hold a borrowed reference between Acquire and Release.
type Session struct {
	// ID is an opaque token generated per acquisition.
	ID string

	// Handle is the capability handle owned by this session. Never
	// shared across sessions.
	Handle Handle

	// CreatedAt is when the session was acquired.
	CreatedAt time.Time

	mu       sync.Mutex
	lastUsed time.Time
	state    SessionState
}

// Touch marks the session as recently used and active.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosing || s.state == StateClosed {
		return
	}
	s.state = StateActive
	s.lastUsed = time.Now()
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastUsedAt returns the timestamp of the last operation on this session.
func (s *Session) LastUsedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// beginClose transitions the session to Closing. It returns false when
// teardown already started, which makes Release idempotent.
func (s *Session) beginClose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosing || s.state == StateClosed {
		return false
	}
	s.state = StateClosing
	return true
}

func (s *Session) markClosed() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
}

// markIdleIfStale demotes an active session to Idle when it has not been
// touched within the grace window.
func (s *Session) markIdleIfStale(now time.Time, grace time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateActive && now.Sub(s.lastUsed) > grace {
		s.state = StateIdle
	}
}
