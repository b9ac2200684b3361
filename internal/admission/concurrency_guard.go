package admission

import "sync"

// ConcurrencyGuard enforces at most one in-flight request per user. The
// check-and-set is atomic so two concurrent messages from the same user
// cannot both pass. A leaked entry permanently locks the user out, which
// is why the orchestrator releases on every exit path.
type ConcurrencyGuard struct {
	mu       sync.Mutex
	inFlight map[int64]struct{}
}

// NewConcurrencyGuard creates an empty guard.
func NewConcurrencyGuard() *ConcurrencyGuard {
	return &ConcurrencyGuard{
		inFlight: make(map[int64]struct{}),
	}
}

// TryAcquire marks the user as in flight. It returns false if the user
// already holds the slot.
func (g *ConcurrencyGuard) TryAcquire(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[userID]; busy {
		return false
	}
	g.inFlight[userID] = struct{}{}
	return true
}

// Release frees the user's slot. Releasing a user that is not in flight
// is a no-op.
func (g *ConcurrencyGuard) Release(userID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, userID)
}
