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

	"github.com/arlide/mural/internal/api"
	"github.com/arlide/mural/internal/canvas"
	"github.com/arlide/mural/internal/canvasservice"
	"github.com/arlide/mural/internal/inbox"
	"github.com/arlide/mural/internal/mcpserver"
	"github.com/arlide/mural/internal/persist"
	"github.com/arlide/mural/internal/snapshot"
	"github.com/arlide/mural/internal/sse"
	"github.com/arlide/mural/internal/storage"
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
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Float64("merge_threshold", cfg.Canvas.MergeThreshold),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize snapshot database.
	db, err := snapshot.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init snapshots: %w", err)
	}
	defer db.Close()

	// Canvas store.
	store := canvas.NewStore()
	store.SetMergeThreshold(cfg.Canvas.MergeThreshold)

	// Persistence gateway: restore the last snapshot, then follow changes.
	gateway := persist.NewGateway(store, db, logger, cfg.Canvas.SaveDebounce())
	gateway.Restore()

	// SSE broker, fed by store events.
	broker := sse.NewBroker(2 * time.Second)
	unsubscribe := store.Subscribe(func(ev canvas.Event) {
		broker.PublishCanvasEvent(ev.Kind, ev.ID)
	})
	defer unsubscribe()

	// Build API service and router.
	svc := canvasservice.NewService(store, gateway)
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

	// Start the import inbox watcher when configured.
	if cfg.Inbox.Enabled() {
		if err := os.MkdirAll(cfg.Inbox.Path, 0o755); err != nil {
			return fmt.Errorf("create inbox dir: %w", err)
		}
		dir, err := storage.NewDir(cfg.Inbox.Path)
		if err != nil {
			return fmt.Errorf("init inbox: %w", err)
		}
		g.Go(func() error {
			return inbox.Watch(gCtx, dir, cfg.Inbox.Path, svc, logger)
		})
	}

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

		// Make any unsaved change durable before the gateway stops.
		if err := gateway.Flush(); err != nil {
			logger.Error("final snapshot flush failed", slog.String("error", err.Error()))
		}
		gateway.Close()
		broker.Close()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server backed by the same snapshot database
// as the HTTP server. Changes made through MCP tools are persisted with the
// same debounce rules.
func RunMCP(cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	db, err := snapshot.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init snapshots: %w", err)
	}
	defer db.Close()

	store := canvas.NewStore()
	store.SetMergeThreshold(cfg.Canvas.MergeThreshold)

	gateway := persist.NewGateway(store, db, logger, cfg.Canvas.SaveDebounce())
	gateway.Restore()
	defer func() {
		if err := gateway.Flush(); err != nil {
			logger.Error("final snapshot flush failed", slog.String("error", err.Error()))
		}
		gateway.Close()
	}()

	svc := canvasservice.NewService(store, gateway)
	return mcpserver.New(svc).ServeStdio()
}
