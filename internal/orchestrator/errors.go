package orchestrator

import "errors"

// Admission outcomes. Handle returns these so callers and tests can tell
// why a message produced no answer; the connector does not act on them.
var (
	// ErrRateLimited means the user exceeded the per-window message quota.
	// The message is dropped without a reply.
	ErrRateLimited = errors.New("rate limited")

	// ErrSuspiciousInput means the content guard flagged the message.
	// The user receives a deflection instead of an answer.
	ErrSuspiciousInput = errors.New("suspicious input")

	// ErrBusy means a previous question from the same user is still being
	// answered.
	ErrBusy = errors.New("previous question still in flight")
)
