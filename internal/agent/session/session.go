// Package session holds the in-memory conversation state shared by every
// command handler: the bounded history, token accounting and the selected
// model.
package session

import "sync"

// State is the shared, lock-protected session. Every method holds the lock
// only for its own body and never across I/O.
type State struct {
	mu      sync.Mutex
	history *History
	stats   TokenStats
	model   string
}

// New returns a session with the given history cap and model.
func New(maxHistory int, model string) *State {
	return &State{history: NewHistory(maxHistory), model: model}
}

// BeginTurn appends the user's message and returns a snapshot of the
// history including it.
func (s *State) BeginTurn(text string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Append(Entry{Role: RoleUser, Text: text})
	return s.history.Entries()
}

// CompleteTurn appends the assistant's answer (if any) and commits usage.
// It returns the updated stats.
func (s *State) CompleteTurn(answer string, usage TurnUsage) TokenStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if answer != "" {
		s.history.Append(Entry{Role: RoleAssistant, Text: answer})
	}
	s.stats.record(usage)
	return s.stats
}

// History returns a copy of the conversation.
func (s *State) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// Clear empties the conversation and the per-call counters. Cumulative
// totals survive.
func (s *State) Clear() TokenStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Clear()
	s.stats.clearLast()
	return s.stats
}

// ResetCost zeroes every counter. History is untouched.
func (s *State) ResetCost() TokenStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = TokenStats{}
	return s.stats
}

// Stats returns the current counters.
func (s *State) Stats() TokenStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Model returns the selected model id.
func (s *State) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// SetModel changes the selected model. Callers validate id.
func (s *State) SetModel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = id
}
