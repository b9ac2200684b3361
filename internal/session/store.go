// Package session keeps per-user conversational state. State is a small
// set of named flags created lazily and held only in memory: losing it on
// restart is acceptable, the user simply starts a fresh exchange.
package session

import "sync"

// Flag names a piece of multi-turn conversation state.
type Flag string

// AwaitingIdentifier is set while the bot waits for the user to send
// their full name for a schedule lookup.
const AwaitingIdentifier Flag = "awaiting_identifier"

// Store is a per-user flag store safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	flags map[int64]map[Flag]struct{}
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		flags: make(map[int64]map[Flag]struct{}),
	}
}

// Has reports whether the flag is set for the user.
func (s *Store) Has(userID int64, flag Flag) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.flags[userID][flag]
	return ok
}

// Set marks the flag for the user, creating the session lazily.
func (s *Store) Set(userID int64, flag Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flags[userID] == nil {
		s.flags[userID] = make(map[Flag]struct{})
	}
	s.flags[userID][flag] = struct{}{}
}

// Clear unsets the flag for the user. Clearing an unset flag is a no-op.
func (s *Store) Clear(userID int64, flag Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.flags[userID], flag)
	if len(s.flags[userID]) == 0 {
		delete(s.flags, userID)
	}
}
