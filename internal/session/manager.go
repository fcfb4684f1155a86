package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 30 * time.Minute

// Manager owns every live session and evicts idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*State
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a Manager. ttl <= 0 selects DefaultTTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{sessions: make(map[string]*State), ttl: ttl, now: time.Now}
}

// Create starts a new empty session.
func (m *Manager) Create() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := newState(uuid.NewString(), func() time.Time { return m.now() })
	m.sessions[s.ID] = s
	return s
}

// Get returns a live session and marks it active. Expired sessions are
// removed and reported as missing.
func (m *Manager) Get(id string) (*State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if m.expired(s) {
		delete(m.sessions, id)
		return nil, false
	}
	s.touch()
	return s, true
}

// Reset clears a session's conversation.
func (m *Manager) Reset(id string) bool {
	s, ok := m.Get(id)
	if !ok {
		return false
	}
	s.Reset()
	return true
}

// Delete removes a session.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Len returns the number of sessions held, expired or not.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (m *Manager) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("evicted idle sessions", "count", n)
			}
		}
	}
}

func (m *Manager) expired(s *State) bool {
	return m.now().Sub(s.LastActive()) > m.ttl
}
