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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/scriptor/internal/api"
	"github.com/starford/scriptor/internal/compress"
	"github.com/starford/scriptor/internal/document"
	"github.com/starford/scriptor/internal/editor"
	"github.com/starford/scriptor/internal/index"
	"github.com/starford/scriptor/internal/mcpserver"
	"github.com/starford/scriptor/internal/models"
	"github.com/starford/scriptor/internal/notestore"
	"github.com/starford/scriptor/internal/parser"
	"github.com/starford/scriptor/internal/sse"
	"github.com/starford/scriptor/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// services is the shared runtime: the vault store and its editing sessions.
type services struct {
	store    *notestore.Store
	db       *index.DB
	sessions *editor.Manager
	logger   *slog.Logger
}

// setup applies opts, installs the JSON logger and opens the vault.
func setup(opts []Option) (*Config, *services, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	var out io.Writer = os.Stdout
	if app.logOutput != nil {
		out = app.logOutput
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("compression", cfg.Vault.Compression),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, err := openServices(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, svc, nil
}

func openServices(cfg *Config, logger *slog.Logger) (*services, error) {
	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	files, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	codec, err := compress.ByName(cfg.Vault.Compression)
	if err != nil {
		return nil, fmt.Errorf("init codec: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	store := notestore.New(files, db, codec, logger)

	// Run initial sync.
	if err := store.Sync(); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &services{
		store:    store,
		db:       db,
		sessions: editor.NewManager(store, cfg.Editor.Options(), logger),
		logger:   logger,
	}, nil
}

// close flushes every open session, then releases the index.
func (s *services) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.sessions.CloseAll(ctx); err != nil {
		s.logger.Error("closing sessions failed", slog.String("error", err.Error()))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("closing index failed", slog.String("error", err.Error()))
	}
}

// watch indexes external vault edits and reloads the sessions showing them.
func (s *services) watch(ctx context.Context, broker *sse.Broker) error {
	err := s.store.Watch(ctx, func(kind, id string) {
		if broker != nil {
			broker.PublishChange(kind, id)
		}
		if kind == notestore.Deleted {
			return
		}
		if n := s.sessions.Refresh(ctx, id); n > 0 {
			s.logger.Info("sessions refreshed", slog.String("id", id), slog.Int("count", n))
		}
	})
	if err != nil {
		return fmt.Errorf("watcher error: %w", err)
	}
	return nil
}

// forwardEvents relays session notifications to SSE clients.
func forwardEvents(sessions *editor.Manager, broker *sse.Broker) {
	sessions.Subscribe(func(ev editor.Event) {
		if ev.Kind == editor.EventChanged {
			broker.Publish(sse.Event{
				Type: sse.TypeNoteChanged,
				Data: sse.ChangeData{ID: ev.NoteID, Kind: "reloaded", SessionID: ev.SessionID},
			})
			return
		}
		broker.Publish(sse.Event{Type: string(ev.Kind), Data: ev})
	})
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	cfg, svc, err := setup(opts)
	if err != nil {
		return err
	}
	defer svc.close()
	logger := svc.logger

	if err := svc.sessions.Start(); err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()
	forwardEvents(svc.sessions, broker)

	apiRouter := api.NewRouter(svc.store, svc.sessions, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := svc.db.GetChecksum("health-probe"); err != nil {
			writeHealth(w, http.StatusServiceUnavailable, "index unavailable")
			return
		}
		writeHealth(w, http.StatusOK, "ok")
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return svc.watch(gCtx, broker)
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// SSE streams never finish on their own; close the broker first so
		// Shutdown does not wait on them.
		broker.Close()
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

// errShutdown cancels the group once the server has been shut down so the
// watcher stops too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
// Logs must not go to stdout in this mode; pass WithLogOutput(os.Stderr).
func RunMCP(ctx context.Context, opts ...Option) error {
	_, svc, err := setup(opts)
	if err != nil {
		return err
	}
	defer svc.close()
	logger := svc.logger

	srv := mcpserver.New(svc.store, svc.sessions, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.watch(gCtx, nil)
	})

	g.Go(func() error {
		defer cancel()
		logger.Info("MCP server starting on stdio")
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("MCP server stopped")
	return nil
}

// Import creates a note from data in the given format (markdown, html or
// text). A non-empty title overrides the one parsed from the content.
func Import(ctx context.Context, format, title string, data []byte, opts ...Option) (*models.Note, error) {
	_, svc, err := setup(opts)
	if err != nil {
		return nil, err
	}
	defer svc.close()

	d, err := parser.Import(format, data)
	if err != nil {
		return nil, err
	}
	if title != "" {
		d.Title = title
	}
	note, err := svc.store.Create(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	svc.logger.Info("note imported", slog.String("id", note.ID), slog.String("format", format))
	return note, nil
}

// Show loads a note for display.
func Show(ctx context.Context, id string, opts ...Option) (*document.Document, error) {
	_, svc, err := setup(opts)
	if err != nil {
		return nil, err
	}
	defer svc.close()

	detail, err := svc.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load note %s: %w", id, err)
	}
	return detail.Document, nil
}

func writeHealth(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}
