package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"orgsync/internal/config"
	"orgsync/internal/logging"
	"orgsync/internal/queue"
)

// Cleanup periodically removes pending items whose enqueue deadline passed
// before any worker reached them.
type Cleanup struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewCleanup assembles the cleanup task.
func NewCleanup(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Cleanup {
	return &Cleanup{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "cleanup"),
	}
}

// Start begins the periodic sweep. The first sweep runs immediately so a
// daemon restart clears backlog without waiting a full interval.
func (c *Cleanup) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return errors.New("cleanup already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.wg.Add(1)
	go c.run(runCtx)
	return nil
}

// Stop terminates the sweep loop and waits for it to finish.
func (c *Cleanup) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
}

func (c *Cleanup) run(ctx context.Context) {
	defer c.wg.Done()

	interval := c.cfg.CleanupInterval()
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleanup) sweep(ctx context.Context) {
	deleted, err := c.store.DeleteExpiredPending(ctx, time.Now().UTC())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Error("expired item sweep failed", logging.Error(err))
		return
	}
	if deleted > 0 {
		c.logger.Info("removed expired pending items", logging.Int64("count", deleted))
	}
}
