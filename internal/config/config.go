// Package config defines the application configuration, loaded from a
// YAML file and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
)

// AppConfig holds all application configuration.
type AppConfig struct {
	// Service configuration
	ServiceName string `env:"SERVICE_NAME" yaml:"service_name" default:"opd-consultant-bot"`
	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	// Telegram configuration
	Telegram TelegramConfig `yaml:"telegram,inline"`

	// Message handling limits
	Limits LimitsConfig `yaml:"limits,inline"`

	// Retrieval service configuration
	RAG RAGConfig `yaml:"rag,inline"`

	// Creative text generation configuration
	LLM LLMConfig `yaml:"llm,inline"`

	// Exchange log configuration
	ExchangeLog ExchangeLogConfig `yaml:"exchange_log,inline"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,inline"`

	// Monitoring configuration
	Monitoring MonitoringConfig `yaml:"monitoring,inline"`
}

// TelegramConfig holds Telegram-specific configuration.
type TelegramConfig struct {
	BotToken string  `env:"TELEGRAM_BOT_TOKEN" yaml:"bot_token" required:"true"`
	AdminIDs []int64 `env:"TELEGRAM_ADMIN_IDS" yaml:"admin_ids"`
	Debug    bool    `env:"TELEGRAM_DEBUG" yaml:"debug"`
}

// LimitsConfig holds message admission limits.
type LimitsConfig struct {
	RateWindow     time.Duration `env:"RATE_WINDOW" yaml:"rate_window" default:"10s"`
	RateQuota      int           `env:"RATE_QUOTA" yaml:"rate_quota" default:"5"`
	MaxMessageSize int           `env:"MAX_MESSAGE_SIZE" yaml:"max_message_size" default:"4096"`
}

// RAGConfig holds retrieval service configuration.
type RAGConfig struct {
	BaseURL string        `env:"RAG_BASE_URL" yaml:"base_url" default:"http://localhost:8000"`
	Timeout time.Duration `env:"RAG_TIMEOUT" yaml:"timeout" default:"30s"`
}

// LLM provider constants.
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// LLMConfig holds the creative generator configuration.
type LLMConfig struct {
	// Provider specifies which LLM provider to use: "claude" or "openai".
	Provider string `env:"LLM_PROVIDER" yaml:"provider" default:"claude"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY" yaml:"openai_api_key"`
	OpenAIModel  string `env:"OPENAI_MODEL" yaml:"openai_model" default:"gpt-4o-mini"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY" yaml:"anthropic_api_key"`
	AnthropicModel  string `env:"CLAUDE_MODEL" yaml:"anthropic_model" default:"claude-sonnet-4-5"`
}

// ExchangeLogConfig holds Q/A persistence configuration. When the
// database URL is empty, exchanges go to the file path; when both are
// empty, logging is disabled.
type ExchangeLogConfig struct {
	DatabaseURL string `env:"DATABASE_URL" yaml:"database_url"`
	FilePath    string `env:"EXCHANGE_LOG_FILE" yaml:"file_path" default:"chat_qa_log.txt"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" yaml:"level" default:"info"`
	Format string `env:"LOG_FORMAT" yaml:"format" default:"json"`
}

// MonitoringConfig holds monitoring configuration.
type MonitoringConfig struct {
	HealthPort         int           `env:"HEALTH_PORT" yaml:"health_port" default:"8081"`
	HealthCheckTimeout time.Duration `env:"HEALTH_CHECK_TIMEOUT" yaml:"health_check_timeout" default:"10s"`
	MetricsEnabled     bool          `env:"METRICS_ENABLED" yaml:"metrics_enabled" default:"true"`
	MetricsPort        int           `env:"METRICS_PORT" yaml:"metrics_port" default:"9090"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *AppConfig) Validate() error {
	var result error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		result = multierror.Append(result, fmt.Errorf("log_level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		result = multierror.Append(result, fmt.Errorf("log_format must be either 'json' or 'text', got %q", c.Logging.Format))
	}

	if c.Limits.RateWindow <= 0 {
		result = multierror.Append(result, fmt.Errorf("rate_window must be greater than 0"))
	}
	if c.Limits.RateQuota <= 0 {
		result = multierror.Append(result, fmt.Errorf("rate_quota must be greater than 0"))
	}
	if c.Limits.MaxMessageSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_message_size must be greater than 0"))
	}

	if c.RAG.BaseURL == "" {
		result = multierror.Append(result, fmt.Errorf("rag base_url must not be empty"))
	}
	if c.RAG.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("rag timeout must be greater than 0"))
	}

	switch c.LLM.Provider {
	case ProviderClaude:
		if c.LLM.AnthropicAPIKey == "" {
			result = multierror.Append(result, fmt.Errorf("ANTHROPIC_API_KEY is required when llm provider is %q", ProviderClaude))
		}
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			result = multierror.Append(result, fmt.Errorf("OPENAI_API_KEY is required when llm provider is %q", ProviderOpenAI))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("llm provider must be %q or %q, got %q", ProviderClaude, ProviderOpenAI, c.LLM.Provider))
	}

	if c.Monitoring.HealthPort < 1 || c.Monitoring.HealthPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("health_port must be between 1 and 65535, got %d", c.Monitoring.HealthPort))
	}
	if c.Monitoring.MetricsEnabled && (c.Monitoring.MetricsPort < 1 || c.Monitoring.MetricsPort > 65535) {
		result = multierror.Append(result, fmt.Errorf("metrics_port must be between 1 and 65535, got %d", c.Monitoring.MetricsPort))
	}

	return result
}

// GetLogLevel returns the parsed logger level.
func (c *AppConfig) GetLogLevel() logger.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return logger.DebugLevel
	case "warn", "warning":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

// IsProduction returns true if running in a production environment.
func (c *AppConfig) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// LogConfig logs the current configuration (without sensitive data).
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Application configuration loaded",
		logger.StringField("service_name", c.ServiceName),
		logger.StringField("version", c.Version),
		logger.StringField("environment", c.Environment),
		logger.IntField("admins", len(c.Telegram.AdminIDs)),
		logger.DurationField("rate_window", c.Limits.RateWindow),
		logger.IntField("rate_quota", c.Limits.RateQuota),
		logger.StringField("rag_base_url", c.RAG.BaseURL),
		logger.StringField("llm_provider", c.LLM.Provider),
		logger.BoolField("database_configured", c.ExchangeLog.DatabaseURL != ""),
		logger.StringField("log_level", c.Logging.Level),
		logger.BoolField("metrics_enabled", c.Monitoring.MetricsEnabled),
	)
}
