package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/semafind/semaknn/config"
	"github.com/semafind/semaknn/dataset"
	"github.com/semafind/semaknn/diskstore"
	"github.com/semafind/semaknn/httpapi"
)

// ---------------------------

func setupLogging(cfg config.ConfigMap) {
	// UNIX Time is faster and smaller than most timestamps
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.PrettyLogOutput {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	// ---------------------------
	// Default level is info, unless debug flag is present
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Interface("config", cfg).Msg("Environment config")
	}
}

// ---------------------------

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)
	log.Info().Str("version", "0.1.0").Msg("Starting semaknn")
	// ---------------------------
	diskStore, err := diskstore.Open(cfg.DataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open dataset store")
	}
	store, err := dataset.NewStore(diskStore)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create dataset store")
	}
	log.Info().Str("path", diskStore.Path()).Msg("Dataset store opened")
	// ---------------------------
	cfg.HttpApi.Debug = cfg.Debug
	httpServer := httpapi.RunHTTPServer(cfg.HttpApi, store, cfg.K, cfg.Workers)
	// ---------------------------
	quit := make(chan os.Signal, 1)
	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server forced to shut")
	}
	cancel()
	// ---------------------------
	if err := diskStore.Close(); err != nil {
		log.Error().Err(err).Msg("Dataset store did not close gracefully")
	}
}
