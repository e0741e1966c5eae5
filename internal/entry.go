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

	"github.com/starford/faqs/internal/api"
	"github.com/starford/faqs/internal/backup"
	"github.com/starford/faqs/internal/faqservice"
	"github.com/starford/faqs/internal/faqstore"
	"github.com/starford/faqs/internal/mcpserver"
	"github.com/starford/faqs/internal/sse"
	"github.com/starford/faqs/internal/storage"
	"github.com/starford/faqs/internal/watcher"
)

type runtime struct {
	cfg    *Config
	logger *slog.Logger
	fs     storage.Provider
	store  *faqstore.Store
}

func setup(opts []Option) (*application, *runtime, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the data directory exists. The backing file itself is
	// created on first write.
	if err := os.MkdirAll(cfg.Store.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create store dir: %w", err)
	}

	fs, err := storage.NewFS(cfg.Store.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	store := faqstore.New(fs, cfg.Store.File)
	if _, err := store.Load(); err != nil {
		// Not fatal: requests report it until the file is fixed by hand.
		logger.Error("backing file unreadable", slog.String("error", err.Error()))
	}

	return app, &runtime{cfg: cfg, logger: logger, fs: fs, store: store}, nil
}

func (rt *runtime) backupRunner() *backup.Runner {
	return backup.NewRunner(rt.store, rt.fs, rt.cfg.Backup.Dir, rt.cfg.Backup.Keep, rt.logger)
}

// Run starts the HTTP service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	_, rt, err := setup(opts)
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	svc := faqservice.NewService(rt.store,
		faqservice.WithLogger(logger),
		faqservice.WithEvents(broker.PublishFaqEvent),
	)
	handler := api.NewHandler(svc)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.CORSMiddleware(cfg.App.HTTP.AllowedOrigins))

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", handler.Ready)

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(svc, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Hand edits of the backing file reach SSE clients as collection.changed.
	g.Go(func() error {
		err := watcher.Watch(gCtx, rt.store, cfg.Store.Dir, logger, func() {
			broker.PublishFaqEvent(faqservice.EventChanged, 0)
		})
		if err != nil {
			logger.Warn("file watcher disabled", slog.String("error", err.Error()))
		}
		return nil
	})

	if cfg.Backup.Enabled() {
		scheduler, err := backup.NewScheduler(cfg.Backup.Schedule, rt.backupRunner(), logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			scheduler.Run(gCtx)
			return nil
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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams never finish on their own.
		broker.Close()

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

// errShutdown cancels the group so the watcher and scheduler stop once
// the HTTP server is down.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
// Logs go to stderr unless WithLogOutput says otherwise.
func RunMCP(_ context.Context, opts ...Option) error {
	app, rt, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	svc := faqservice.NewService(rt.store, faqservice.WithLogger(rt.logger))
	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc, app.version).ServeStdio()
}

// RunBackup writes a single snapshot and returns its path.
func RunBackup(_ context.Context, opts ...Option) (string, error) {
	_, rt, err := setup(opts)
	if err != nil {
		return "", err
	}
	name, err := rt.backupRunner().Run()
	if err != nil {
		return "", err
	}
	rt.logger.Info("backup written", slog.String("path", name))
	return name, nil
}
