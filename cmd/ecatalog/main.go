package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/open-procurement/ecatalog/internal/api"
	"github.com/open-procurement/ecatalog/internal/auth"
	"github.com/open-procurement/ecatalog/internal/cache"
	"github.com/open-procurement/ecatalog/internal/catalog"
	"github.com/open-procurement/ecatalog/internal/config"
	"github.com/open-procurement/ecatalog/internal/profile"
	"github.com/open-procurement/ecatalog/internal/standards"
	"github.com/open-procurement/ecatalog/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting ecatalog",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Migrations.Dir)
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Migrations.Dir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("database connected successfully")

	// Load the reference tables
	registry := standards.NewRegistry(cfg.Standards.Dir)
	if err := registry.Load(); err != nil {
		slog.Error("failed to load standards", "dir", cfg.Standards.Dir, "error", err)
		os.Exit(1)
	}

	// Load the users file
	authenticator, err := auth.LoadAuthenticator(cfg.Auth.UsersFile)
	if err != nil {
		slog.Error("failed to load users file", "file", cfg.Auth.UsersFile, "error", err)
		os.Exit(1)
	}

	// Connect the criterion cache; the service runs without it
	var criterionCache *cache.CriterionCache
	if cfg.Redis.Address != "" {
		criterionCache, err = cache.NewCriterionCache(cfg.Redis.Address, cfg.Redis.Password)
		if err != nil {
			slog.Warn("redis unavailable, running without criterion cache", "error", err)
		} else {
			defer criterionCache.Close()
		}
	}

	// Wire the services
	criteria := catalog.NewService(repo, registry, criterionCache)
	profiles := profile.NewService(repo, registry, criteria)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, criteria, profiles, repo, authenticator)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("ecatalog stopped")
}
