package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests advance time manually.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestGate(window time.Duration, quota int) (*RateGate, *fakeClock) {
	clock := &fakeClock{current: time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)}
	gate := NewRateGate(window, quota)
	gate.now = clock.now
	return gate, clock
}

func TestRateGateDeniesOverQuota(t *testing.T) {
	gate, _ := newTestGate(10*time.Second, 5)

	for i := 0; i < 5; i++ {
		assert.True(t, gate.Admit(1), "request %d should be admitted", i+1)
	}
	assert.False(t, gate.Admit(1), "request over quota must be denied")
}

func TestRateGateResetsAfterWindow(t *testing.T) {
	gate, clock := newTestGate(10*time.Second, 5)

	for i := 0; i < 5; i++ {
		gate.Admit(1)
	}
	assert.False(t, gate.Admit(1))

	clock.advance(11 * time.Second)
	assert.True(t, gate.Admit(1), "window elapsed, admission must reset")
}

func TestRateGateDenialDoesNotRecord(t *testing.T) {
	gate, clock := newTestGate(10*time.Second, 2)

	gate.Admit(1)
	gate.Admit(1)
	// Hammering while denied must not extend the block.
	for i := 0; i < 20; i++ {
		assert.False(t, gate.Admit(1))
	}
	assert.LessOrEqual(t, len(gate.history[1]), 3)

	clock.advance(11 * time.Second)
	assert.True(t, gate.Admit(1))
}

func TestRateGateUsersAreIndependent(t *testing.T) {
	gate, _ := newTestGate(10*time.Second, 1)

	assert.True(t, gate.Admit(1))
	assert.False(t, gate.Admit(1))
	assert.True(t, gate.Admit(2), "another user must not be affected")
}

func TestRateGatePartialWindowExpiry(t *testing.T) {
	gate, clock := newTestGate(10*time.Second, 2)

	gate.Admit(1)
	clock.advance(6 * time.Second)
	gate.Admit(1)
	assert.False(t, gate.Admit(1))

	// First timestamp expires, second is still inside the window.
	clock.advance(5 * time.Second)
	assert.True(t, gate.Admit(1))
	assert.False(t, gate.Admit(1))
}
