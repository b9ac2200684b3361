// Package server wires the application together and manages its
// lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lewisedginton/opd_consultant_bot/internal/admission"
	appconfig "github.com/lewisedginton/opd_consultant_bot/internal/config"
	"github.com/lewisedginton/opd_consultant_bot/internal/connectors/telegram"
	exchangelog "github.com/lewisedginton/opd_consultant_bot/internal/exchange_log"
	"github.com/lewisedginton/opd_consultant_bot/internal/intent"
	"github.com/lewisedginton/opd_consultant_bot/internal/llm"
	"github.com/lewisedginton/opd_consultant_bot/internal/monitoring"
	"github.com/lewisedginton/opd_consultant_bot/internal/orchestrator"
	"github.com/lewisedginton/opd_consultant_bot/internal/replay"
	"github.com/lewisedginton/opd_consultant_bot/internal/session"
	"github.com/lewisedginton/opd_consultant_bot/internal/splitter"
	"github.com/lewisedginton/opd_consultant_bot/internal/strategies"
	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
	"github.com/lewisedginton/opd_consultant_bot/pkg/metrics"
)

// Server encapsulates all bot components and lifecycle management.
type Server struct {
	cfg       *appconfig.AppConfig
	log       logger.Logger
	metrics   *metrics.Metrics
	pool      *pgxpool.Pool
	recorder  *exchangelog.AsyncRecorder
	strategy  *strategies.Composite
	connector *telegram.Connector
	replayer  *replay.Coordinator
	cancel    context.CancelFunc
}

// New creates a Server instance with all components initialized.
func New(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewMetrics(log),
	}

	recorder, err := s.createRecorder(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange recorder: %w", err)
	}
	s.recorder = exchangelog.NewAsyncRecorder(recorder, log)

	generator, err := s.createGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM generator: %w", err)
	}

	ragClient := strategies.NewRAGClient(cfg.RAG.BaseURL, cfg.RAG.Timeout, log)
	s.strategy = strategies.NewComposite(ragClient, generator, log)

	sessions := session.NewStore()
	router := intent.NewRouter(sessions, s.strategy, log)

	orch := orchestrator.New(orchestrator.Deps{
		RateGate:  admission.NewRateGate(cfg.Limits.RateWindow, cfg.Limits.RateQuota),
		Guard:     admission.NewConcurrencyGuard(),
		Router:    router,
		Deflector: s.strategy,
		Segmenter: splitter.New(cfg.Limits.MaxMessageSize),
		Deliverer: nil, // set below, the connector is the deliverer
		Recorder:  s.recorder,
		Metrics:   s.metrics,
		Logger:    log,
	})

	// The connector and the orchestrator reference each other: the
	// connector feeds messages in, the orchestrator delivers through it.
	s.connector, err = telegram.NewConnector(telegram.Config{
		BotToken: cfg.Telegram.BotToken,
		AdminIDs: cfg.Telegram.AdminIDs,
		Debug:    cfg.Telegram.Debug,
	}, orch, s.metrics, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram connector: %w", err)
	}
	orch.SetDeliverer(s.connector)

	backlog := telegram.NewBacklogSource(cfg.Telegram.BotToken, log)
	s.replayer = replay.NewCoordinator(backlog, s.connector, s.strategy, s.metrics, log)

	return s, nil
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	defer cancel()

	s.setupGracefulShutdown()

	if s.cfg.Monitoring.MetricsEnabled {
		s.metrics.Listen(s.cfg.Monitoring.MetricsPort)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.startHealthServer(ctx); err != nil {
			s.log.Error("Health server failed", logger.ErrorField(err))
		}
	}()

	// Drain the offline backlog before polling starts consuming updates.
	if err := s.replayer.Drain(ctx); err != nil {
		s.log.Error("Backlog replay failed, continuing with live polling", logger.ErrorField(err))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		botInfo, err := s.connector.GetBotInfo(ctx)
		if err != nil {
			s.log.Warn("Failed to get Telegram bot info", logger.ErrorField(err))
		} else {
			s.log.Info("Telegram bot connected",
				logger.StringField("bot_username", botInfo.Username),
				logger.StringField("bot_first_name", botInfo.FirstName))
		}

		if err := s.connector.Start(ctx); err != nil {
			s.log.Error("Telegram connector error", logger.ErrorField(err))
			cancel()
		}
	}()

	wg.Wait()
	s.shutdown()
	return nil
}

// shutdown releases resources after the connectors have stopped.
func (s *Server) shutdown() {
	s.log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.metrics.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Metrics listener shutdown error", logger.ErrorField(err))
	}

	// Flush pending exchange writes before closing the pool they use.
	s.recorder.Close()
	if s.pool != nil {
		s.pool.Close()
	}

	s.log.Info("Shutdown complete")
}

// startHealthServer runs the probe endpoints until the context ends.
func (s *Server) startHealthServer(ctx context.Context) error {
	healthMonitor := monitoring.NewHealthMonitor(monitoring.Config{
		Logger:           s.log,
		Version:          s.cfg.Version,
		RAGHealthURL:     strings.TrimSuffix(s.cfg.RAG.BaseURL, "/") + "/health",
		Connector:        s.connector,
		Timeout:          s.cfg.Monitoring.HealthCheckTimeout,
		FailureThreshold: 3,
	})

	mux := http.NewServeMux()
	healthMonitor.RegisterHandlers(mux)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Monitoring.HealthPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.log.Info("Health check server listening", logger.IntField("port", s.cfg.Monitoring.HealthPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("Health server failed", logger.ErrorField(err))
		}
	}()

	<-ctx.Done()
	s.log.Info("Shutting down health server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// createRecorder picks the exchange log sink from configuration.
func (s *Server) createRecorder(ctx context.Context) (exchangelog.Recorder, error) {
	if url := s.cfg.ExchangeLog.DatabaseURL; url != "" {
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		s.pool = pool

		migrator := exchangelog.NewMigrationManager(pool, s.log)
		if err := migrator.RunMigrations(); err != nil {
			return nil, err
		}

		s.log.Info("Recording exchanges to Postgres")
		return exchangelog.NewPostgresRecorder(pool, s.log), nil
	}

	if path := s.cfg.ExchangeLog.FilePath; path != "" {
		s.log.Info("Recording exchanges to file", logger.StringField("path", path))
		return exchangelog.NewFileRecorder(path), nil
	}

	s.log.Info("Exchange logging disabled")
	return exchangelog.NopRecorder{}, nil
}

// createGenerator creates the creative text generator for the
// configured provider.
func (s *Server) createGenerator() (llm.Generator, error) {
	switch strings.ToLower(s.cfg.LLM.Provider) {
	case appconfig.ProviderClaude:
		s.log.Info("Initializing Claude generator",
			logger.StringField("model", s.cfg.LLM.AnthropicModel))
		return llm.NewAnthropicGenerator(s.cfg.LLM.AnthropicAPIKey, s.cfg.LLM.AnthropicModel)

	case appconfig.ProviderOpenAI:
		s.log.Info("Initializing OpenAI generator",
			logger.StringField("model", s.cfg.LLM.OpenAIModel))
		return llm.NewOpenAIGenerator(s.cfg.LLM.OpenAIAPIKey, s.cfg.LLM.OpenAIModel)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.cfg.LLM.Provider)
	}
}

// setupGracefulShutdown installs signal handling for graceful shutdown.
func (s *Server) setupGracefulShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		s.log.Info("Received shutdown signal", logger.StringField("signal", sig.String()))

		if s.cancel != nil {
			s.cancel()
		}

		time.AfterFunc(30*time.Second, func() {
			s.log.Warn("Force exiting due to timeout")
			os.Exit(1)
		})
	}()
}
