// Package metrics provides Prometheus metrics collection for the message
// handling pipeline.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const subsystem = "bot"

// Metrics provides Prometheus metrics collection for inbound message
// processing and delivery.
type Metrics struct {
	reg *prometheus.Registry

	MessagesReceivedCounter prometheus.Counter
	MessagesRejectedCounter *prometheus.CounterVec
	IntentCounter           *prometheus.CounterVec
	ChunksDeliveredCounter  prometheus.Counter
	DeliveryFailuresCounter prometheus.Counter
	ReplayedCounter         prometheus.Counter
	StrategyDuration        prometheus.Histogram

	server *http.Server
	log    logger.Logger
}

// Rejection reason label values.
const (
	ReasonRateLimited       = "rate_limited"
	ReasonSuspicious        = "suspicious"
	ReasonAlreadyProcessing = "already_processing"
	ReasonNotAdmin          = "not_admin"
)

// NewMetrics creates a new Metrics instance with all pipeline collectors
// registered.
func NewMetrics(l logger.Logger) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		log: l,
	}

	m.MessagesReceivedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "messages_received_total",
		Help:      "Total inbound text messages",
	})
	m.MessagesRejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "messages_rejected_total",
		Help:      "Messages rejected before routing, by reason",
	}, []string{"reason"})
	m.IntentCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "intents_total",
		Help:      "Routed messages by classified intent",
	}, []string{"intent"})
	m.ChunksDeliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "chunks_delivered_total",
		Help:      "Outbound message chunks delivered",
	})
	m.DeliveryFailuresCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "delivery_failures_total",
		Help:      "Outbound chunks that failed to send",
	})
	m.ReplayedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "replayed_messages_total",
		Help:      "Backlog messages processed during startup drain",
	})
	m.StrategyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "strategy_duration_seconds",
		Help:      "Answer strategy call duration in seconds",
		Buckets:   []float64{0.1, 0.3, 0.5, 1.0, 3.0, 5.0, 10.0, 30.0},
	})

	m.reg.MustRegister(
		m.MessagesReceivedCounter,
		m.MessagesRejectedCounter,
		m.IntentCounter,
		m.ChunksDeliveredCounter,
		m.DeliveryFailuresCounter,
		m.ReplayedCounter,
		m.StrategyDuration,
	)

	return m
}

// RecordRejection increments the rejection counter for the given reason.
func (m *Metrics) RecordRejection(reason string) {
	m.MessagesRejectedCounter.WithLabelValues(reason).Inc()
}

// RecordIntent increments the intent counter for the given intent tag.
func (m *Metrics) RecordIntent(intent string) {
	m.IntentCounter.WithLabelValues(intent).Inc()
}

// Listen starts the metrics HTTP server on the specified port.
func (m *Metrics) Listen(port int) {
	m.log.Info("Starting metrics listener", logger.IntField("port", port))
	mux := http.NewServeMux()
	mux.Handle("/", http.NotFoundHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.log.Error("Metrics listener failed", logger.ErrorField(err))
		}
	}()
}

// Shutdown stops the metrics HTTP server.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
