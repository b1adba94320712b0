// Package main is the entry point for the prepstack taxonomy server.
// It loads configuration, connects to services, sets up routing, and
// starts the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prepstack/internal/cache"
	"prepstack/internal/config"
	"prepstack/internal/database"
	"prepstack/internal/handlers"
	"prepstack/internal/router"
	"prepstack/internal/store"
	"prepstack/internal/taxonomy"
)

func main() {
	// Structured logger — outputs text; level stays at debug, the API is
	// quiet enough that filtering happens downstream.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

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

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey for the count cache. The taxonomy works without
	// it — counts just hit the database every time — so a connection
	// failure downgrades rather than aborts.
	var countCache *cache.CountCache
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Warn("valkey unavailable, count caching disabled", "error", err)
	} else {
		defer valkeyClient.Close()
		countCache = cache.NewCountCache(valkeyClient, cache.DefaultCountTTL)
	}

	// Initialize data stores and the hierarchy engine.
	categoryStore := store.NewCategoryStore(db)
	labelStore := store.NewLabelStore(db)
	assocStore := store.NewAssociationStore(db)
	engine := taxonomy.NewEngine(labelStore, assocStore, countCache)

	// Create handler groups with their dependencies.
	categoryHandlers := handlers.NewCategories(categoryStore)
	labelHandlers := handlers.NewLabels(labelStore, engine)
	queryHandlers := handlers.NewQueries(engine)
	itemHandlers := handlers.NewItems(engine)

	// Set up the Chi router with all middleware and routes.
	r, limiters := router.New(categoryHandlers, labelHandlers, queryHandlers, itemHandlers)
	defer func() {
		for _, l := range limiters {
			l.Stop()
		}
	}()

	// Create the HTTP server with sensible timeouts. Bulk imports are the
	// slowest requests; a thousand-label batch stays well under these.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
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
