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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/intersect-sdl/sdl-doc-gen/internal/api"
	"github.com/intersect-sdl/sdl-doc-gen/internal/docextract"
	"github.com/intersect-sdl/sdl-doc-gen/internal/docservice"
	"github.com/intersect-sdl/sdl-doc-gen/internal/index"
	"github.com/intersect-sdl/sdl-doc-gen/internal/linkgraph"
	"github.com/intersect-sdl/sdl-doc-gen/internal/markdown"
	"github.com/intersect-sdl/sdl-doc-gen/internal/mcpserver"
	"github.com/intersect-sdl/sdl-doc-gen/internal/paths"
	"github.com/intersect-sdl/sdl-doc-gen/internal/sse"
)

// NewLogger returns a structured logger at level. JSON goes to stdout for
// the server; text goes to stderr for one-shot commands and the MCP server,
// whose stdout is the protocol stream.
func NewLogger(level slog.Level, jsonOut bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if jsonOut {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// NewCompiler builds the markdown compiler from cfg.
func NewCompiler(cfg *Config, logger *slog.Logger) *markdown.Compiler {
	var cache markdown.RenderCache = markdown.NopCache{}
	if cfg.Diagram.CacheTTL > 0 {
		cache = markdown.NewTTLCache(cfg.Diagram.CacheTTL)
	}
	return markdown.New(
		markdown.WithLogger(logger),
		markdown.WithDiagramConfig(cfg.Diagram.Markdown()),
		markdown.WithRenderCache(cache),
	)
}

// NewBuilder builds the link-graph builder from cfg.
func NewBuilder(cfg *Config, logger *slog.Logger) *linkgraph.Builder {
	return linkgraph.NewBuilder(
		linkgraph.WithLogger(logger),
		linkgraph.WithExtractors(docextract.DefaultRegistry(logger)),
		linkgraph.WithConcurrency(cfg.Index.Concurrency),
	)
}

// relTo anchors p at base unless p is empty or absolute.
func relTo(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// NewService wires the doc service from cfg. Relative index paths are
// resolved against the content base path. The returned closer releases the
// database.
func NewService(cfg *Config, logger *slog.Logger, opts ...docservice.Option) (*docservice.Service, func() error, error) {
	pc, err := cfg.Content.Paths()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve paths: %w", err)
	}
	dbPath := relTo(pc.BasePath, cfg.Index.SQLitePath)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := index.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}
	outputs := docservice.Outputs{
		UUIDCache: relTo(pc.BasePath, cfg.Index.UUIDCache),
		Backlinks: relTo(pc.BasePath, cfg.Index.Backlinks),
	}
	svc := docservice.New(pc, NewCompiler(cfg, logger), NewBuilder(cfg, logger), db, outputs, logger, opts...)
	logConfig(logger, cfg, pc, dbPath)
	return svc, db.Close, nil
}

func logConfig(logger *slog.Logger, cfg *Config, pc *paths.Config, dbPath string) {
	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("base_path", pc.BasePath),
		slog.Any("content_roots", pc.ContentRoots),
		slog.String("sqlite_path", dbPath),
		slog.String("log_level", cfg.App.LogLevel.String()))
}

func (a *application) init() error {
	if a.config == nil {
		return fmt.Errorf("config is required")
	}
	if a.version == "" {
		a.version = "dev"
	}
	return nil
}

// NewHandler builds the root HTTP handler: health checks plus the API under
// /api. A non-nil events handler streams link-graph changes at /api/events.
func NewHandler(svc *docservice.Service, auth AuthConfig, events http.Handler) http.Handler {
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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := svc.Stats(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(svc, auth.AuthEnabled(), auth.Token, events))
	return r
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}
	if err := app.init(); err != nil {
		return err
	}

	cfg := app.config
	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg.App.LogLevel, true)
	}
	slog.SetDefault(logger)

	broker := sse.NewBroker(2*time.Second, logger)
	defer broker.Close()

	svc, closeDB, err := NewService(cfg, logger, docservice.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer closeDB()

	// Run initial index.
	if _, err := svc.Reindex(ctx); err != nil {
		logger.Warn("initial reindex failed", slog.String("error", err.Error()))
	}

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: NewHandler(svc, cfg.Auth, broker),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		// Ends open event streams so Shutdown does not wait on them.
		broker.Close()

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

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}
	if err := app.init(); err != nil {
		return err
	}

	cfg := app.config
	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg.App.LogLevel, false)
	}
	slog.SetDefault(logger)

	svc, closeDB, err := NewService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	if _, err := svc.Reindex(ctx); err != nil {
		logger.Warn("initial reindex failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting on stdio", slog.String("version", app.version))
	return mcpserver.New(svc, app.version).ServeStdio()
}
