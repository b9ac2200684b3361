// Package admission contains the safety gates every inbound message must
// pass before it reaches the intent router: flood control, suspicious
// input filtering and the one-in-flight-per-user guard.
package admission

import (
	"sync"
	"time"
)

// RateGate is a per-user sliding-window flood control. It is a soft
// fairness mechanism, not a security boundary: state lives in memory and
// resets on restart.
type RateGate struct {
	window time.Duration
	quota  int
	now    func() time.Time

	mu      sync.Mutex
	history map[int64][]time.Time
}

// NewRateGate creates a rate gate allowing quota requests per user within
// the given window.
func NewRateGate(window time.Duration, quota int) *RateGate {
	return &RateGate{
		window:  window,
		quota:   quota,
		now:     time.Now,
		history: make(map[int64][]time.Time),
	}
}

// Admit reports whether the user may make another request now. The
// timestamp is recorded only when the request is admitted; a denied call
// still prunes expired entries, so the per-user slice never grows past
// quota plus the pending check.
func (g *RateGate) Admit(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cutoff := now.Add(-g.window)

	timestamps := g.history[userID]
	pruned := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}

	if len(pruned) >= g.quota {
		g.history[userID] = pruned
		return false
	}

	g.history[userID] = append(pruned, now)
	return true
}
