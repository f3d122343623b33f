package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-lessons/internal/catalog"
	"github.com/p-n-ai/pai-lessons/internal/notify"
	"github.com/p-n-ai/pai-lessons/internal/platform/cache"
	"github.com/p-n-ai/pai-lessons/internal/platform/config"
	"github.com/p-n-ai/pai-lessons/internal/platform/database"
	"github.com/p-n-ai/pai-lessons/internal/platform/logging"
	"github.com/p-n-ai/pai-lessons/internal/progress"
	"github.com/p-n-ai/pai-lessons/internal/quiz"
	"github.com/p-n-ai/pai-lessons/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logging.New(os.Stdout, cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open progress store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer store.close()

	hub := notify.NewHub(0)
	engine := quiz.NewEngine(quiz.EngineConfig{
		Backend:       store.backend,
		Events:        store.events,
		Notifier:      hub,
		PassThreshold: cfg.Quiz.PassThreshold,
	})

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: web.NewServer(web.Config{
			Engine: engine,
			Loader: catalog.NewLoader(newSource(cfg.Catalog)),
			Hub:    hub,
			Ready:  store.ready,
		}),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "backend", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// storeDeps is the progress backend plus the event logger that goes with it.
// ready backs the /readyz check.
type storeDeps struct {
	backend progress.Backend
	events  quiz.EventLogger
	ready   func(context.Context) error
	close   func()
}

// openStore connects the backend named by cfg.Store.Backend. Only the
// postgres backend records events durably.
func openStore(ctx context.Context, cfg *config.Config) (storeDeps, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		backend := progress.NewMemoryBackend()
		return storeDeps{
			backend: backend,
			events:  quiz.NopEventLogger{},
			ready:   backend.Ping,
			close:   func() {},
		}, nil

	case config.BackendRedis:
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return storeDeps{}, err
		}
		return storeDeps{
			backend: progress.NewRedisBackend(c.Client),
			events:  quiz.NopEventLogger{},
			ready:   c.HealthCheck,
			close:   func() { _ = c.Close() },
		}, nil

	case config.BackendPostgres:
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return storeDeps{}, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return storeDeps{}, err
		}
		backend, err := progress.NewPostgresBackend(db.Pool)
		if err != nil {
			db.Close()
			return storeDeps{}, err
		}
		return storeDeps{
			backend: backend,
			events:  quiz.NewPostgresEventLogger(db.Pool),
			ready:   db.HealthCheck,
			close:   db.Close,
		}, nil

	case config.BackendSQLite:
		backend, err := progress.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return storeDeps{}, err
		}
		return storeDeps{
			backend: backend,
			events:  quiz.NopEventLogger{},
			ready:   backend.Ping,
			close:   func() { _ = backend.Close() },
		}, nil
	}
	return storeDeps{}, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// newSource prefers a remote catalog when a base URL is configured.
func newSource(cfg config.CatalogConfig) catalog.Source {
	if cfg.BaseURL != "" {
		return catalog.NewHTTPSource(cfg.BaseURL)
	}
	return catalog.NewDirSource(cfg.Dir)
}
