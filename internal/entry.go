// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
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

	"github.com/starford/reftree/internal/api"
	"github.com/starford/reftree/internal/builder"
	"github.com/starford/reftree/internal/doctree"
	"github.com/starford/reftree/internal/index"
	"github.com/starford/reftree/internal/mcpserver"
	"github.com/starford/reftree/internal/metrics"
	"github.com/starford/reftree/internal/schemas"
	"github.com/starford/reftree/internal/sse"
)

func newApplication(opts []Option, logOut io.Writer) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		// Initialize structured JSON logger.
		app.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
		slog.SetDefault(app.logger)
	}
	return app, nil
}

func (a *application) treeOptions(m *metrics.Metrics) []doctree.Option {
	opts := []doctree.Option{doctree.WithLogger(a.logger)}
	if m != nil {
		opts = append(opts, doctree.WithObserver(m.Observer()))
	}
	return opts
}

func (a *application) source(m *metrics.Metrics) index.Source {
	return index.Source{
		Root:    a.config.Content.Root,
		Pattern: a.config.Content.Pattern,
		Load:    schemas.LoadFamily,
		Options: a.treeOptions(m),
	}
}

func (a *application) buildOptions(m *metrics.Metrics) builder.Options {
	opts := builder.Options{
		ContentRoot:    a.config.Content.Root,
		BuildDir:       a.config.Build.Dir,
		AssetURLPrefix: a.config.Build.AssetURLPrefix,
		Pattern:        a.config.Content.Pattern,
		OutputName:     a.config.Build.Output,
		Logger:         a.logger,
	}
	if m != nil {
		opts.Observer = m.Observer()
	}
	return opts
}

// Run indexes the content tree, keeps the index current while files
// change and serves the API until ctx is cancelled or a signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_root", cfg.Content.Root),
		slog.String("content_pattern", cfg.Content.Pattern),
		slog.String("build_dir", cfg.Build.Dir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure content directory exists.
	if err := os.MkdirAll(cfg.Content.Root, 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	m := metrics.New()
	src := app.source(m)

	// Run initial rebuild.
	if _, err := index.Rebuild(ctx, db, src, logger); err != nil {
		logger.Warn("initial rebuild failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(api.Config{
		Index:       db,
		ContentRoot: cfg.Content.Root,
		TreeOptions: app.treeOptions(m),
		Build:       app.buildOptions(m),
		Metrics:     m,
		Events:      broker,
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
	})

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

	// Published assets of the last build.
	assetsDir := filepath.Join(cfg.Build.Dir, "assets")
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(assetsDir))))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher: every settled batch of changes rebuilds the index.
	g.Go(func() error {
		return index.Watch(gCtx, cfg.Content.Root, logger, cfg.Content.WatchDebounce, func(paths []string) {
			if _, err := index.Rebuild(gCtx, db, src, logger); err != nil {
				logger.Warn("rebuild failed", slog.String("error", err.Error()))
				return
			}
			changes, err := sse.Describe(db, paths)
			if err != nil {
				logger.Warn("describe changes failed", slog.String("error", err.Error()))
				return
			}
			broker.PublishChanges(changes)
		})
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

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// Build compiles the content tree into the build directory once.
func Build(ctx context.Context, opts ...Option) (*builder.Result, error) {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return nil, err
	}
	return builder.Compile(ctx, app.buildOptions(nil))
}

// Check loads and validates every root document without writing anything.
func Check(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	_, err = builder.Check(ctx, app.buildOptions(nil))
	return err
}

// ServeMCP indexes the content tree and serves MCP tools over stdio.
// Logs go to stderr; stdout carries the protocol.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	cfg := app.config

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if _, err := index.Rebuild(ctx, db, app.source(nil), app.logger); err != nil {
		return fmt.Errorf("index content: %w", err)
	}
	return mcpserver.New(db, cfg.Content.Root, app.treeOptions(nil)...).ServeStdio()
}
