package main

import (
	"context"
	"log"
	"os"

	appconfig "github.com/lewisedginton/opd_consultant_bot/internal/config"
	"github.com/lewisedginton/opd_consultant_bot/internal/server"
	"github.com/lewisedginton/opd_consultant_bot/pkg/config"
	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg appconfig.AppConfig
	if err := config.Load(&cfg, configPath, true); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.NewLogger(logger.Config{
		Level:   cfg.GetLogLevel(),
		Format:  cfg.Logging.Format,
		Service: cfg.ServiceName,
	})
	cfg.LogConfig(l)

	srv, err := server.New(context.Background(), &cfg, l)
	if err != nil {
		l.Error("Failed to initialize server", logger.ErrorField(err))
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		l.Error("Server exited with error", logger.ErrorField(err))
		os.Exit(1)
	}
}
