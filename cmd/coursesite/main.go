// Package main is the entry point for the course website server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"coursesite/internal/access"
	"coursesite/internal/config"
	"coursesite/internal/database"
	"coursesite/internal/handlers"
	"coursesite/internal/menu"
	"coursesite/internal/middleware"
	"coursesite/internal/prefs"
	"coursesite/internal/router"
	"coursesite/internal/session"
	"coursesite/internal/sites"
	"coursesite/internal/storage"
	"coursesite/internal/store"
	"coursesite/internal/store/memstore"
	"coursesite/internal/valkey"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: debug in development, info elsewhere.
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"store", cfg.StoreDriver,
	)

	var (
		repo   store.Repository
		roster store.Roster
		client *redis.Client
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		mem := memstore.New()
		database.SeedRoster(mem)
		repo, roster = mem, mem

		// The embedded Valkey keeps sessions and preferences in process.
		var stop func()
		client, stop, err = valkey.Embedded()
		if err != nil {
			slog.Error("failed to start embedded valkey", "error", err)
			os.Exit(1)
		}
		defer stop()

	default:
		// Connect to PostgreSQL.
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		// Run pending migrations.
		if err := database.Migrate(db); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		// Seed the development course (no-op if data already exists).
		if cfg.IsDev() {
			if err := database.Seed(db); err != nil {
				slog.Error("failed to seed database", "error", err)
				os.Exit(1)
			}
		}
		repo, roster = store.New(db), store.NewRosterStore(db)

		// Connect to Valkey (sessions and edit-mode preferences).
		client, err = valkey.Connect(cfg.ValkeyAddr(), cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer client.Close()
	}

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(client, secureCookies)
	prefStore := prefs.NewStore(client)

	// Connect to S3-compatible object storage (optional; attachments are
	// disabled without it).
	var files sites.Files
	storageClient, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		files = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", storageClient.Bucket())
	} else {
		slog.Warn("s3 storage not configured, block attachments disabled")
	}

	resolver := access.NewResolver(repo, roster)
	menus := menu.NewExpander(repo, resolver, cfg.BaseURL)
	svc := sites.New(repo, roster, resolver, menus, files)
	api := handlers.New(svc, sessionStore, prefStore)

	limiter := middleware.NewRateLimiter(120, time.Minute)
	defer limiter.Stop()

	r := router.New(api, sessionStore, prefStore, router.Options{
		Secure:   secureCookies,
		DevLogin: cfg.IsDev(),
		Limiter:  limiter,
	})

	// Create the HTTP server with sensible timeouts. WriteTimeout covers
	// site copies, which duplicate every attachment in object storage.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
