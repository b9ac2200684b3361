// Package health manages liveness and readiness checks.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
)

// Check represents a single health check that can succeed or fail.
type Check interface {
	// Name returns the human-readable name of this check
	Name() string

	// Check performs the health check
	// Returns nil if healthy, error if unhealthy
	Check(ctx context.Context) error
}

// CheckFunc is a function adapter that allows simple functions to be used as checks.
type CheckFunc struct {
	name string
	fn   func(context.Context) error
}

// NewCheckFunc creates a new CheckFunc with the given name and function.
func NewCheckFunc(name string, fn func(context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

// Name returns the name of this check.
func (c *CheckFunc) Name() string { return c.name }

// Check executes the check function.
func (c *CheckFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// CheckResult represents the result of a single health check execution.
type CheckResult struct {
	Name    string
	Healthy bool
	Error   string
	Latency time.Duration
}

// Status represents the overall health status.
type Status struct {
	Healthy bool
	Checks  []CheckResult
}

// Checker manages and executes health checks for liveness and readiness probes.
type Checker struct {
	livenessChecks   []Check
	readinessChecks  []Check
	timeout          time.Duration
	failureCount     map[string]int
	failureThreshold int
	logger           logger.Logger
	mu               sync.Mutex
}

// Option is a functional option for configuring Checker.
type Option func(*Checker)

// WithTimeout sets the timeout for individual health checks. Default is 5s.
func WithTimeout(d time.Duration) Option {
	return func(h *Checker) { h.timeout = d }
}

// WithLogger sets the logger for health check operations.
func WithLogger(l logger.Logger) Option {
	return func(h *Checker) { h.logger = l }
}

// WithFailureThreshold sets the number of consecutive failures before a
// check is reported unhealthy. Default is 3.
func WithFailureThreshold(threshold int) Option {
	return func(h *Checker) {
		if threshold > 0 {
			h.failureThreshold = threshold
		}
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	h := &Checker{
		timeout:          5 * time.Second,
		failureThreshold: 3,
		failureCount:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddLivenessCheck adds a liveness check.
// Liveness checks determine if the process should be restarted.
func (h *Checker) AddLivenessCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessChecks = append(h.livenessChecks, check)
}

// AddReadinessCheck adds a readiness check.
// Readiness checks determine if the service can handle requests.
func (h *Checker) AddReadinessCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessChecks = append(h.readinessChecks, check)
}

// CheckLiveness executes all liveness checks.
func (h *Checker) CheckLiveness(ctx context.Context) (*Status, error) {
	h.mu.Lock()
	checks := h.livenessChecks
	h.mu.Unlock()
	return h.executeChecks(ctx, checks)
}

// CheckReadiness executes all readiness checks.
func (h *Checker) CheckReadiness(ctx context.Context) (*Status, error) {
	h.mu.Lock()
	checks := h.readinessChecks
	h.mu.Unlock()
	return h.executeChecks(ctx, checks)
}

// executeChecks runs all checks and aggregates the results. A check only
// counts as unhealthy after failureThreshold consecutive failures.
func (h *Checker) executeChecks(ctx context.Context, checks []Check) (*Status, error) {
	status := &Status{Healthy: true, Checks: make([]CheckResult, 0, len(checks))}
	if len(checks) == 0 {
		return status, nil
	}

	var firstErr error
	for _, check := range checks {
		result := h.runCheck(ctx, check)
		status.Checks = append(status.Checks, result)
		if !result.Healthy {
			status.Healthy = false
			if firstErr == nil {
				firstErr = fmt.Errorf("check %s failed: %s", result.Name, result.Error)
			}
		}
	}
	return status, firstErr
}

func (h *Checker) runCheck(ctx context.Context, check Check) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := check.Check(checkCtx)
	latency := time.Since(start)

	h.mu.Lock()
	defer h.mu.Unlock()

	result := CheckResult{Name: check.Name(), Healthy: true, Latency: latency}
	if err == nil {
		h.failureCount[check.Name()] = 0
		return result
	}

	h.failureCount[check.Name()]++
	result.Error = err.Error()
	if h.failureCount[check.Name()] >= h.failureThreshold {
		result.Healthy = false
		if h.logger != nil {
			h.logger.Warn("Health check unhealthy",
				logger.StringField("check", check.Name()),
				logger.IntField("consecutive_failures", h.failureCount[check.Name()]),
				logger.ErrorField(err))
		}
	}
	return result
}
