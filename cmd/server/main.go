package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/bokoth/chatrelay/internal/adapters/http"
	"github.com/bokoth/chatrelay/internal/app"
	"github.com/bokoth/chatrelay/internal/config"
	"github.com/bokoth/chatrelay/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("failed to create upload dir")
	}

	db, err := store.OpenPebble(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open message store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("message store close")
		}
	}()

	registry := app.NewRegistry()
	presence := app.NewPresence(registry)
	msgRouter := app.NewMessageRouter(registry, db, db, cfg.PersistTimeout)
	signals := app.NewSignalRelay(registry)
	relay := app.NewRelay(registry, presence, msgRouter, signals)

	r := router.SetupRouter(ctx, cfg, relay, db)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Chat relay started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
