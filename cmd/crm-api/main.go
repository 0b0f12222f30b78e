// Command crm-api serves the CRM REST API.
//
// Usage:
//
//	CONFIG_PATH=config/local.yaml crm-api
//	crm-api --config=config/local.yaml
package main

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

	"github.com/aanand-mishra/crm-api/internal/config"
	"github.com/aanand-mishra/crm-api/internal/http/server"
	"github.com/aanand-mishra/crm-api/internal/logger"
	"github.com/aanand-mishra/crm-api/internal/seed"
	"github.com/aanand-mishra/crm-api/internal/storage"
	"github.com/aanand-mishra/crm-api/internal/storage/bolt"
	"github.com/aanand-mishra/crm-api/internal/storage/sqlite"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.MustLoad()

	log, closer := logger.New(cfg)
	defer closer.Close()
	// Handlers and storage log through the package-level slog functions.
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("crm-api stopped", slog.String("error", err.Error()))
		// os.Exit skips deferred calls; flush the log file first.
		closer.Close()
		os.Exit(1)
	}
}

// run owns the process lifecycle:
//
//  1. open the configured storage backend (migrating sqlite on the way)
//  2. seed an empty database when seed_path is set
//  3. serve HTTP until SIGINT or SIGTERM arrives
//  4. stop accepting connections and give in-flight requests
//     shutdownTimeout to finish
//  5. close storage
//
// The listener and the shutdown watcher run in one errgroup. If the
// listener fails (port already taken, say) the group context is cancelled
// and the watcher still shuts the server down cleanly; the first error is
// returned.
func run(cfg *config.Config, log *slog.Logger) error {
	log.Info("starting crm-api",
		slog.String("env", cfg.Env),
		slog.String("storage_driver", cfg.StorageDriver))

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	// Runs after g.Wait, once no handler can touch storage any more.
	defer store.Close()

	log.Info("storage initialised", slog.String("path", cfg.StoragePath))

	// ctx is cancelled on the first SIGINT/SIGTERM. stop restores default
	// signal handling, so a second Ctrl+C kills the process outright.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SeedPath != "" {
		if _, err := seed.Load(ctx, store, cfg.SeedPath); err != nil {
			return err
		}
	}

	srv := server.New(cfg.HTTPServer, store, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server started", slog.String("address", srv.Addr))
		// ErrServerClosed is the normal result of Shutdown, not a failure.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		// gctx is already cancelled, so the deadline needs a fresh parent.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}

func openStorage(cfg *config.Config) (storage.Storage, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.StoragePath), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	switch cfg.StorageDriver {
	case config.DriverBolt:
		return bolt.New(cfg)
	default:
		return sqlite.New(cfg)
	}
}
