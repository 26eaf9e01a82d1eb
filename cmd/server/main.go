package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eaglechat/gateway/internal/config"
	"github.com/eaglechat/gateway/internal/conversation"
	"github.com/eaglechat/gateway/internal/db"
	"github.com/eaglechat/gateway/internal/httpapi"
	"github.com/eaglechat/gateway/internal/logging"
	"github.com/eaglechat/gateway/internal/providerkey"
	"github.com/eaglechat/gateway/internal/ratelimit"
	"github.com/eaglechat/gateway/internal/registration"
	"github.com/eaglechat/gateway/internal/signer"
	"github.com/eaglechat/gateway/internal/tenant"
	"github.com/eaglechat/gateway/internal/vault"
)

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	cfg, err := config.Load(env("CONFIG_PATH", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	applyLogLevel(cfg.Logging.Level)

	// Configure structured logging: stderr (pretty in dev) plus a daily
	// rotating file under logging.log_directory, pruned per logging.retention_days.
	var output io.Writer = os.Stderr
	if env("ENV", "") == "dev" {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	var rotator *logging.Rotator
	if cfg.Logging.LogDirectory != "" {
		rotator, err = logging.New(cfg.Logging.LogDirectory, cfg.Logging.RetentionDays)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize log rotation")
		}
		defer rotator.Close()
		output = io.MultiWriter(output, rotator)
	}
	log.Logger = zerolog.New(output).With().Timestamp().Str("service", "eaglechat-gateway").Logger()

	masterSecret, err := base64.StdEncoding.DecodeString(cfg.MasterKeyB64)
	if err != nil {
		log.Fatal().Err(err).Msg("MASTER_KEY is not valid base64")
	}
	// The derived data-encryption key is established once, here, before the
	// server starts serving; it is never rebuilt or rotated at runtime.
	v, err := vault.New(masterSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vault")
	}

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg.StoreURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if err := db.Bootstrap(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap schema")
	}

	tenantStore := tenant.NewStore(pool)
	coordinator := registration.NewCoordinator(tenantStore, cfg.Callback.RetryAttempts, cfg.Callback.RetryDelay(), cfg.API.DevelopmentMode)
	verifier := signer.NewVerifier(v)
	broker := providerkey.NewBroker(tenantStore, v)
	limiter := ratelimit.New(ratelimit.DefaultCapacity, ratelimit.DefaultWindow)
	defer limiter.Close()
	conversationStore := conversation.NewStore(pool)

	srv := &httpapi.Server{
		Tenant:       tenantStore,
		Registration: coordinator,
		Verifier:     verifier,
		Broker:       broker,
		RateLimiter:  limiter,
		Conversation: conversationStore,
		Vault:        v,

		DevelopmentMode: cfg.API.DevelopmentMode,
		APITitle:        cfg.API.Title,
		APIVersion:      cfg.API.Version,
	}

	httpAddr := env("HTTP_ADDR", ":8080")
	httpServer := &http.Server{
		Addr:         httpAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", httpAddr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("server stopped")
}

func applyLogLevel(level string) {
	switch level {
	case "DEBUG":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "INFO":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "WARN":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "ERROR":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}
}
