// Package session holds per-conversation filter state.
package session

import (
	"sync"
	"time"

	"github.com/kalambet/popcorn/internal/filter"
	"github.com/kalambet/popcorn/internal/resolve"
)

// Turn is one committed utterance and the filter it resolved to.
type Turn struct {
	Utterance string        `json:"utterance"`
	Filter    filter.Filter `json:"filter"`
	At        time.Time     `json:"at"`
}

// Ticket identifies one in-flight request against a State.
type Ticket struct {
	seq uint64
}

// State is the conversation memory of one session: the committed turns,
// the last resolved filter and the session's person cache.
type State struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	current    *filter.Filter
	turns      []Turn
	issued     uint64
	lastActive time.Time
	people     *resolve.Cache
	now        func() time.Time
}

func newState(id string, now func() time.Time) *State {
	t := now()
	return &State{ID: id, CreatedAt: t, lastActive: t, people: resolve.NewCache(), now: now}
}

// Current returns the last committed filter, or false before the first turn.
func (s *State) Current() (filter.Filter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return filter.Filter{}, false
	}
	return *s.current, true
}

// Merge normalizes raw against the current filter without changing state.
// Ask does the same merge inside intent.Extractor, which receives Current
// as its previous filter; Merge serves callers that hold a raw partial
// filter and a session but no extractor.
func (s *State) Merge(raw filter.Raw) filter.Filter {
	cur, ok := s.Current()
	if !ok {
		return filter.Normalize(raw, nil)
	}
	return filter.Normalize(raw, &cur)
}

// Begin issues a ticket. Only the most recently issued ticket can commit.
func (s *State) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.lastActive = s.now()
	return Ticket{seq: s.issued}
}

// Latest reports whether t is still the most recent ticket.
func (s *State) Latest(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.seq == s.issued
}

// Commit records a turn if t is still the latest ticket and reports
// whether it did.
func (s *State) Commit(t Ticket, utterance string, f filter.Filter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.seq != s.issued {
		return false
	}
	now := s.now()
	s.current = &f
	s.turns = append(s.turns, Turn{Utterance: utterance, Filter: f, At: now})
	s.lastActive = now
	return true
}

// Reset forgets the conversation. Requests begun before the reset become
// stale.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.turns = nil
	s.issued++
	s.lastActive = s.now()
	s.people.Clear()
}

// Turns returns a copy of the committed turns, oldest first.
func (s *State) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// People is the session-scoped person lookup cache.
func (s *State) People() *resolve.Cache {
	return s.people
}

// LastActive is the time of the last request or commit.
func (s *State) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *State) touch() {
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
}

// Snapshot is a JSON view of a State.
type Snapshot struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	LastActive time.Time      `json:"last_active"`
	Filter     *filter.Filter `json:"filter"`
	Turns      []Turn         `json:"turns"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{ID: s.ID, CreatedAt: s.CreatedAt, LastActive: s.lastActive, Turns: make([]Turn, len(s.turns))}
	copy(snap.Turns, s.turns)
	if s.current != nil {
		f := *s.current
		snap.Filter = &f
	}
	return snap
}
