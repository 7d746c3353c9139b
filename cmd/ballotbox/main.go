// Package main is the entry point for the ballotbox terminal election manager.
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

	"github.com/prn-tf/ballotbox/internal/app"
	"github.com/prn-tf/ballotbox/internal/config"
	"github.com/prn-tf/ballotbox/internal/console"
	"github.com/prn-tf/ballotbox/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	// Bootstrap logger until the configured one is ready
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env file")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	defer logCloser.Close()

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("driver", cfg.Storage.Driver).
		Msg("Starting ballotbox")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load election state")
	}
	a.StartOps()

	done := make(chan error, 1)
	go func() {
		done <- console.New(a, os.Stdin, os.Stdout).Run(ctx)
	}()

	select {
	case err = <-done:
		if err != nil {
			logger.Error().Err(err).Msg("Console stopped")
		}
	case <-ctx.Done():
		logger.Info().Msg("Interrupted")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown completed with errors")
		os.Exit(1)
	}
	logger.Info().Msg("Shutdown complete")
}
