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

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/docservice"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/session"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/storage"
)

// stack holds the long-lived components shared by the HTTP and MCP entry
// points.
type stack struct {
	cfg      *Config
	logger   *slog.Logger
	db       *index.DB
	indexer  *index.Indexer
	broker   *sse.Broker
	docs     *docservice.Service
	sessions *session.Manager
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// build opens storage and the index, runs the initial sync and wires the
// services. Filesystem changes fan out to the SSE broker and to open
// sessions of the changed document.
func (a *application) build(ctx context.Context) (*stack, error) {
	cfg := a.config

	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Int("history_limit", cfg.Editor.HistoryLimit))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.Extensions...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	st := &stack{
		cfg:    cfg,
		logger: logger,
		db:     db,
		broker: sse.NewBroker(cfg.Editor.SSEThrottle),
	}
	st.indexer = index.NewIndexer(db, store, logger, func(kind, path string) {
		st.broker.PublishDocumentEvent(kind, path)
		st.sessions.DocumentChanged(ctx, kind, path)
	})

	if err := st.indexer.Sync(); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	st.docs = docservice.New(store, db, st.indexer)
	st.sessions = session.NewManager(st.docs, st.broker,
		session.WithHistoryLimit(cfg.Editor.HistoryLimit),
		session.WithStripZeroWidth(cfg.Editor.StripZeroWidth),
		session.WithLogger(logger),
	)
	return st, nil
}

func (st *stack) close() {
	st.sessions.CloseAll()
	st.broker.Close()
	if err := st.db.Close(); err != nil {
		st.logger.Error("close index", slog.String("error", err.Error()))
	}
}

// watch runs the vault watcher until ctx is done.
func (st *stack) watch(ctx context.Context) error {
	if err := st.indexer.Watch(ctx, st.cfg.Vault.Path); err != nil {
		st.logger.Error("watcher stopped", slog.String("error", err.Error()))
	}
	return nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	st, err := app.build(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	cfg, logger := st.cfg, st.logger

	apiRouter := api.NewRouter(st.docs, st.sessions, cfg.Auth.AuthEnabled(), cfg.Auth.Token, st.broker)

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

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error { return st.watch(gCtx) })

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown ends the errgroup so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
// The vault watcher keeps the index current meanwhile.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	st, err := app.build(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = st.watch(ctx) }()

	st.logger.Info("MCP server starting on stdio")
	if err := mcpserver.New(st.docs, st.sessions).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
