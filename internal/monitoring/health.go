// Package monitoring wires the health checker into HTTP probe endpoints.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lewisedginton/opd_consultant_bot/pkg/health"
	"github.com/lewisedginton/opd_consultant_bot/pkg/health/checkers"
	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
)

// Health status constants.
const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusReady     = "ready"
	statusNotReady  = "not_ready"
)

// ConnectorHealth reports whether the chat connector is polling.
type ConnectorHealth interface {
	Ready() bool
}

// Config holds configuration for the health monitor.
type Config struct {
	Logger           logger.Logger
	Version          string
	RAGHealthURL     string          // URL of the retrieval service health endpoint
	Connector        ConnectorHealth // Optional: chat connector readiness
	Timeout          time.Duration   // Health check timeout
	FailureThreshold int             // Consecutive failures before reporting unhealthy
}

// HealthMonitor manages health checks and probe endpoints.
type HealthMonitor struct {
	checker   *health.Checker
	logger    logger.Logger
	version   string
	startTime time.Time
}

// NewHealthMonitor creates a health monitor with the configured checks.
func NewHealthMonitor(cfg Config) *HealthMonitor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	failureThreshold := cfg.FailureThreshold
	if failureThreshold == 0 {
		failureThreshold = 3
	}

	checker := health.New(
		health.WithLogger(cfg.Logger),
		health.WithTimeout(timeout),
		health.WithFailureThreshold(failureThreshold),
	)

	checker.AddLivenessCheck(health.NewCheckFunc("process", func(ctx context.Context) error {
		return nil
	}))

	if cfg.RAGHealthURL != "" {
		checker.AddReadinessCheck(checkers.NewHTTPChecker(cfg.RAGHealthURL, "rag_service"))
	}

	if cfg.Connector != nil {
		checker.AddReadinessCheck(health.NewCheckFunc("telegram_connector", func(ctx context.Context) error {
			if !cfg.Connector.Ready() {
				return fmt.Errorf("connector is not polling")
			}
			return nil
		}))
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	return &HealthMonitor{
		checker:   checker,
		logger:    cfg.Logger,
		version:   version,
		startTime: time.Now(),
	}
}

// LivenessHandler serves GET /health/live for liveness probes.
func (hm *HealthMonitor) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := hm.checker.CheckLiveness(r.Context())

		response := map[string]interface{}{
			"status":    statusHealthy,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(hm.startTime).String(),
			"checks":    status.Checks,
		}

		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			response["status"] = statusUnhealthy
			response["error"] = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
			hm.logger.Error("Liveness check failed", logger.ErrorField(err))
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	}
}

// ReadinessHandler serves GET /health/ready for readiness probes.
func (hm *HealthMonitor) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := hm.checker.CheckReadiness(r.Context())

		response := map[string]interface{}{
			"status":    statusReady,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    status.Checks,
		}

		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			response["status"] = statusNotReady
			response["error"] = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
			hm.logger.Error("Readiness check failed", logger.ErrorField(err))
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	}
}

// HealthHandler serves GET /health with the combined status.
func (hm *HealthMonitor) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		livenessStatus, livenessErr := hm.checker.CheckLiveness(r.Context())
		readinessStatus, readinessErr := hm.checker.CheckReadiness(r.Context())

		liveness := map[string]interface{}{
			"status": statusHealthy,
			"checks": livenessStatus.Checks,
		}
		readiness := map[string]interface{}{
			"status": statusReady,
			"checks": readinessStatus.Checks,
		}
		response := map[string]interface{}{
			"status":    statusHealthy,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(hm.startTime).String(),
			"version":   hm.version,
			"liveness":  liveness,
			"readiness": readiness,
		}

		healthy := true
		if livenessErr != nil {
			liveness["status"] = statusUnhealthy
			liveness["error"] = livenessErr.Error()
			healthy = false
		}
		if readinessErr != nil {
			readiness["status"] = statusNotReady
			readiness["error"] = readinessErr.Error()
			healthy = false
		}

		w.Header().Set("Content-Type", "application/json")
		if !healthy {
			response["status"] = statusUnhealthy
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	}
}

// RegisterHandlers registers all probe endpoints on the provided mux.
func (hm *HealthMonitor) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/health", hm.HealthHandler())
	mux.HandleFunc("/health/live", hm.LivenessHandler())
	mux.HandleFunc("/health/ready", hm.ReadinessHandler())
}
