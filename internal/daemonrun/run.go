// Package daemonrun wires configuration, stores, worker, and cleanup into
// the long-running daemon process.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"orgsync/internal/catalog"
	"orgsync/internal/config"
	"orgsync/internal/logging"
	"orgsync/internal/notifications"
	"orgsync/internal/queue"
	"orgsync/internal/registry"
	"orgsync/internal/worker"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the orgsync daemon: it acquires the single-instance lock, opens
// the stores, and drives the worker and cleanup loops until a termination
// signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("orgsync-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "orgsync.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another orgsync daemon instance is already running")
	}
	defer func() { _ = lock.Unlock() }()

	pidPath := filepath.Join(cfg.Paths.LogDir, "orgsync.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	catalogStore, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog store", logging.Error(err))
		return err
	}
	defer catalogStore.Close()

	notifier := notifications.NewService(cfg)
	client := registry.NewClient(cfg)
	w := worker.New(cfg, store, catalogStore, client, notifier, logger)
	if err := w.Start(signalCtx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer w.Stop()

	if cfg.Cleanup.Enabled {
		cleanup := worker.NewCleanup(cfg, store, logger)
		if err := cleanup.Start(signalCtx); err != nil {
			return fmt.Errorf("start cleanup: %w", err)
		}
		defer cleanup.Stop()
	}

	logger.Info("orgsync daemon started",
		logging.String("lock", lockPath),
		logging.String("registry", cfg.Registry.BaseURL),
		logging.Int("batch_size", cfg.Sync.BatchSize),
		logging.Int("concurrency", cfg.Sync.WorkerConcurrency),
	)
	if err := notifier.NotifyDaemonStarted(signalCtx); err != nil {
		logger.Warn("start notification failed", logging.Error(err))
	}

	<-signalCtx.Done()
	logger.Info("orgsync daemon shutting down")
	if err := notifier.NotifyDaemonStopped(context.Background()); err != nil {
		logger.Warn("stop notification failed", logging.Error(err))
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
