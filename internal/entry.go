// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/nordvik/plume/internal/api"
	"github.com/nordvik/plume/internal/mcpserver"
	"github.com/nordvik/plume/internal/pipeline"
	"github.com/nordvik/plume/internal/project"
	"github.com/nordvik/plume/internal/settings"
	"github.com/nordvik/plume/internal/sse"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the settings document and project registry.
	store, err := settings.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init settings store: %w", err)
	}
	registry := project.NewRegistry(store)

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Publishing pipeline over key-refreshing provider clients.
	publisher := pipeline.NewPublisher(
		&textProvider{reg: registry, baseURL: cfg.Providers.TextBaseURL, timeout: cfg.Providers.Timeout},
		&imageProvider{reg: registry, baseURL: cfg.Providers.ImageBaseURL, timeout: cfg.Providers.Timeout},
		pipeline.WithUploadPolicy(cfg.Upload.MaxAttempts, cfg.Upload.BackoffSeed, cfg.Upload.Parallel),
		pipeline.WithStageHook(func(proj string, stage pipeline.Stage) {
			broker.PublishStage(proj, string(stage))
		}),
		pipeline.WithLogger(logger),
	)

	// Build API service and router.
	svc := api.NewService(registry, publisher, cfg.Providers.Timeout, broker)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the settings document for external edits.
	g.Go(func() error {
		err := settings.Watch(gCtx, store.Path(), logger, func() {
			broker.PublishSettingsChanged()
		})
		if err != nil {
			logger.Warn("settings watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server over the same settings document and
// pipeline as the HTTP server. Logs go to stderr; stdout is the transport.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := settings.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init settings store: %w", err)
	}
	registry := project.NewRegistry(store)

	publisher := pipeline.NewPublisher(
		&textProvider{reg: registry, baseURL: cfg.Providers.TextBaseURL, timeout: cfg.Providers.Timeout},
		&imageProvider{reg: registry, baseURL: cfg.Providers.ImageBaseURL, timeout: cfg.Providers.Timeout},
		pipeline.WithUploadPolicy(cfg.Upload.MaxAttempts, cfg.Upload.BackoffSeed, cfg.Upload.Parallel),
		pipeline.WithLogger(logger),
	)

	logger.Info("MCP server starting on stdio", slog.String("store_path", cfg.Store.Path))
	return mcpserver.New(registry, publisher).ServeStdio()
}
