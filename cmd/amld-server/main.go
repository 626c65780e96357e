package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Gautam825406/Finance-crime-detection/internal/config"
	"github.com/Gautam825406/Finance-crime-detection/internal/observability"
	"github.com/Gautam825406/Finance-crime-detection/internal/pipeline"
	"github.com/Gautam825406/Finance-crime-detection/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults apply when empty)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg)

	log.Info().
		Str("instance_id", cfg.General.InstanceID).
		Str("environment", cfg.General.Environment).
		Str("listen_addr", cfg.Server.ListenAddr).
		Msg("Configuration loaded")

	metrics := observability.PipelineMetrics()
	health := observability.NewHealth()
	runner := pipeline.New(cfg.Detection, metrics, health)
	srv := server.New(cfg, runner, metrics, health)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case <-ctx.Done():
		log.Warn().Msg("Shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownGraceSecs)*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown incomplete")
	}
	log.Info().Msg("Shutdown complete")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro

	level, err := zerolog.ParseLevel(cfg.General.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(os.Stdout)
	if cfg.General.LogFormat == "text" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	log.Logger = logger.With().
		Timestamp().
		Str("service", "amld-server").
		Str("instance_id", cfg.General.InstanceID).
		Logger()
}
