package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/badgeforge/badgeforge/internal/config"
	"github.com/badgeforge/badgeforge/internal/crypto"
	"github.com/badgeforge/badgeforge/internal/database"
	"github.com/badgeforge/badgeforge/internal/handler"
	"github.com/badgeforge/badgeforge/internal/logger"
	"github.com/badgeforge/badgeforge/internal/middleware"
	"github.com/badgeforge/badgeforge/internal/repository"
	"github.com/badgeforge/badgeforge/internal/router"
	"github.com/badgeforge/badgeforge/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", "0.1.0").Msg("starting BadgeForge server")

	// The envelope protects signing keys at rest; refuse to start without
	// a master key.
	envelope, err := crypto.NewEnvelope(cfg.Security.MasterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("BADGEFORGE_SECURITY_MASTER_KEY must be set")
	}

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to PostgreSQL")

	// Connect to Redis
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	// Initialize repositories
	issuerRepo := repository.NewIssuerRepository(db)
	badgeRepo := repository.NewBadgeClassRepository(db)
	assertionRepo := repository.NewAssertionRepository(db)
	signingKeyRepo := repository.NewSigningKeyRepository(db)

	// Initialize services
	keySvc := service.NewKeyService(signingKeyRepo, envelope, log)
	signSvc := service.NewSigningService(keySvc, cfg.Security.Tokens, log)
	issuanceSvc := service.NewIssuanceService(issuerRepo, badgeRepo, assertionRepo, keySvc, signSvc, rdb, cfg.Badge, log)
	verifySvc := service.NewVerificationService(keySvc, assertionRepo, rdb, cfg.Badge.RevocationCacheTTL, log)
	log.Info().Msg("credential services initialized")

	// Initialize handlers
	h := handler.New(db, rdb, log, cfg, keySvc, issuanceSvc, verifySvc, issuerRepo, badgeRepo, assertionRepo)

	// Initialize middleware
	mw := middleware.New(rdb, log, cfg)

	// Set up router
	r := router.New(h, mw)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
