package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"wedding-rsvp/internal/config"
	"wedding-rsvp/internal/dispatch"
	"wedding-rsvp/internal/reply"
	"wedding-rsvp/internal/server"
	"wedding-rsvp/internal/storage"
	"wedding-rsvp/internal/whatsapp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := zerolog.New(os.Stderr)
		errLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	waService, err := whatsapp.NewService(&whatsapp.Config{DataDir: cfg.WhatsAppDataDir}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize WhatsApp service")
	}

	dispatcher := dispatch.NewDispatcher(waService, store, cfg.MaxPerDay, log)
	replyHandler := reply.NewHandler(store, waService, store, log)
	waService.SetInboundHandler(replyHandler.Handle)

	log.Info().Msg("Connecting to WhatsApp")
	if err := waService.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to WhatsApp")
	}

	srv := server.New(store, dispatcher, replyHandler, cfg.MaxPerDay, log)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	waService.Disconnect()
}
