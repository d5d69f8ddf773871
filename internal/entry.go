// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"cmp"
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
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ehwaz/internal/api"
	"github.com/starford/ehwaz/internal/graph"
	"github.com/starford/ehwaz/internal/ingest"
	"github.com/starford/ehwaz/internal/mcpserver"
	"github.com/starford/ehwaz/internal/noteservice"
	"github.com/starford/ehwaz/internal/search"
	"github.com/starford/ehwaz/internal/sse"
	"github.com/starford/ehwaz/internal/storage"
)

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = newLogger(cfg.App)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("search_path", cmp.Or(cfg.Search.Path, ":memory:")),
		slog.String("log_level", cfg.App.LogLevel))

	svc, store, idx, err := bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	defer idx.Close()

	// SSE broker.
	broker := sse.NewBroker(2*time.Second, 15*time.Second)
	defer broker.Close()

	// Build API router; the broker doubles as the /api/events handler.
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", healthOK)
	r.Get("/health/ready", healthOK)

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// File watcher publishes SSE events for externally edited notes.
	g.Go(func() error {
		watchLog := logger.With(slog.String("component", "watcher"))
		err := ingest.Watch(gCtx, svc, store, store.Root(), watchLog, func(kind, id, path string) {
			broker.PublishNote(sse.NoteEventKind(kind), id, path)
		})
		if err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Shutdown on signal or context cancellation.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

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

	logger.Info("Server stopped")
	return nil
}

// RunMCP starts the MCP stdio server with the given options. Logs go to
// stderr; stdout belongs to the MCP protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = newLogger(cfg.App)
	}
	slog.SetDefault(logger)

	svc, _, idx, err := bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	defer idx.Close()

	logger.Info("Starting MCP server on stdio", slog.String("workspace_path", cfg.Workspace.Path))
	return mcpserver.New(svc).ServeStdio()
}

// bootstrap wires storage, search, and the graph into a note service and
// runs the initial workspace sync.
func bootstrap(cfg *Config, logger *slog.Logger) (*noteservice.Service, storage.Provider, *search.DB, error) {
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create workspace dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}

	idx, err := search.Open(cfg.Search.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init search index: %w", err)
	}

	g := graph.New(store.Root(), graph.WithReader(store))
	svc := noteservice.NewService(store, g, idx)

	if err := ingest.Sync(svc, store, logger.With(slog.String("component", "sync"))); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return svc, store, idx, nil
}

// newLogger builds the slog logger for the configured format. Logs always go
// to stderr so that stdout stays clean for the MCP stdio transport.
func newLogger(cfg ApplicationConfig) *slog.Logger {
	w := os.Stderr
	terminal := isatty.IsTerminal(w.Fd())

	format := cfg.LogFormat
	if format == LogFormatAuto {
		if terminal {
			format = LogFormatText
		} else {
			format = LogFormatJSON
		}
	}

	if format == LogFormatText {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      cfg.Level(),
			TimeFormat: "15:04:05.000",
			NoColor:    !terminal,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.Level()}))
}

func healthOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
