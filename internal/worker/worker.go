package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"orgsync/internal/catalog"
	"orgsync/internal/config"
	"orgsync/internal/logging"
	"orgsync/internal/notifications"
	"orgsync/internal/queue"
	"orgsync/internal/reconcile"
	"orgsync/internal/registry"
	"orgsync/internal/services"
)

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeRetried
	outcomeFailed
	outcomeConflict
	outcomeClaimLost
)

// Worker owns the claim-process loop over the sync queue.
type Worker struct {
	cfg      *config.Config
	store    *queue.Store
	catalog  *catalog.Store
	registry registry.Client
	notifier notifications.Service
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New assembles a worker. A nil notifier or logger degrades to no-ops.
func New(cfg *config.Config, store *queue.Store, catalogStore *catalog.Store, client registry.Client, notifier notifications.Service, logger *slog.Logger) *Worker {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Worker{
		cfg:      cfg,
		store:    store,
		catalog:  catalogStore,
		registry: client,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "worker"),
	}
}

// Start begins background processing.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	go w.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for in-flight items.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.reclaimExpired(ctx)

		items, err := w.store.ClaimBatch(ctx, w.cfg.Sync.BatchSize)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to claim batch", logging.Error(err))
			w.wait(ctx, time.Duration(w.cfg.Sync.ErrorRetrySeconds)*time.Second)
			continue
		}
		if len(items) > 0 {
			w.processBatch(ctx, items)
		}
		w.wait(ctx, w.cfg.PollInterval())
	}
}

func (w *Worker) reclaimExpired(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.cfg.ClaimLease())
	reclaimed, err := w.store.ReclaimExpiredClaims(ctx, cutoff)
	if err != nil {
		w.logger.Warn("reclaim of expired claims failed; stuck items may remain", logging.Error(err))
		return
	}
	if reclaimed > 0 {
		w.logger.Info("reclaimed expired claims", logging.Int64("count", reclaimed))
	}
}

// processBatch runs one claimed batch. Items sharing an external code form a
// group that runs sequentially; distinct groups run concurrently under the
// configured limit. Processing runs on a context detached from the shutdown
// signal: every claimed item reaches a terminal transition, cancellation only
// stops new batches from being claimed.
func (w *Worker) processBatch(ctx context.Context, items []*queue.Item) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	batchID := items[0].ClaimToken
	logger := w.logger.With(logging.String(logging.FieldBatchID, batchID))
	logger.Info("processing batch", logging.Int("items", len(items)))

	groups := groupByEntity(items)
	limit := w.cfg.Sync.WorkerConcurrency
	if limit <= 0 {
		limit = 1
	}

	var (
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, limit)
		mu        sync.Mutex
		tally     = make(map[outcome]int)
	)
	for _, group := range groups {
		wg.Add(1)
		go func(group []*queue.Item) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			for _, item := range group {
				result := w.processItem(ctx, item)
				mu.Lock()
				tally[result]++
				mu.Unlock()
			}
		}(group)
	}
	wg.Wait()

	duration := time.Since(start)
	logger.Info("batch complete",
		logging.Int("completed", tally[outcomeCompleted]),
		logging.Int("retried", tally[outcomeRetried]),
		logging.Int("failed", tally[outcomeFailed]),
		logging.Int("conflicts", tally[outcomeConflict]),
		logging.Int("claims_lost", tally[outcomeClaimLost]),
		logging.Duration("duration", duration),
	)
	if err := w.notifier.NotifyBatchCompleted(ctx, tally[outcomeCompleted], tally[outcomeFailed], tally[outcomeConflict], duration); err != nil {
		logger.Warn("batch notification failed", logging.Error(err))
	}
}

// groupByEntity buckets items by external code, preserving claim order both
// across groups and inside each group.
func groupByEntity(items []*queue.Item) [][]*queue.Item {
	index := make(map[string]int, len(items))
	var groups [][]*queue.Item
	for _, item := range items {
		pos, ok := index[item.ExternalCode]
		if !ok {
			pos = len(groups)
			index[item.ExternalCode] = pos
			groups = append(groups, nil)
		}
		groups[pos] = append(groups[pos], item)
	}
	return groups
}

func (w *Worker) processItem(ctx context.Context, item *queue.Item) outcome {
	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithEntityCode(ctx, item.ExternalCode)
	logger := logging.WithContext(ctx, w.logger).With(
		logging.String(logging.FieldEntityType, string(item.Kind)),
		logging.String(logging.FieldOperation, string(item.Operation)),
	)

	remote, err := w.registry.Fetch(ctx, item.Kind, item.ExternalCode)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return w.handleRemoteGone(ctx, logger, item)
		}
		if !services.Retryable(err) {
			return w.failTerminal(ctx, logger, item, "registry rejected request", err)
		}
		return w.failRetryable(ctx, logger, item, "registry unavailable", err)
	}

	local, err := w.catalog.Get(ctx, item.Kind, item.ExternalCode)
	if err != nil {
		return w.failRetryable(ctx, logger, item, "catalog read failed", err)
	}

	var localFields, baseline map[string]string
	if local != nil {
		localFields = local.Fields()
		baseline = local.Baseline()
	}

	remoteFields := remote.Fields()
	if item.PayloadJSON != "" {
		if err := fillFromSnapshot(remoteFields, item.PayloadJSON); err != nil {
			logger.Warn("queued snapshot unreadable; using registry response only", logging.Error(err))
		}
	}

	result := reconcile.Reconcile(remoteFields, localFields, baseline)
	switch result.Action {
	case reconcile.ActionApply:
		if err := w.catalog.ApplyChanges(ctx, item.Kind, item.ExternalCode, result.Changes); err != nil {
			return w.failRetryable(ctx, logger, item, "catalog write failed", err)
		}
		return w.complete(ctx, logger, item, len(result.Changes))
	case reconcile.ActionNoOp:
		logger.Info("already in sync")
		return w.complete(ctx, logger, item, 0)
	default:
		return w.markConflict(ctx, logger, item, result)
	}
}

// fillFromSnapshot fills fields the registry response left empty with values
// from the remote snapshot queued at enqueue time. Fetched values always win;
// the snapshot only supplies fields the registry omitted.
func fillFromSnapshot(fields map[string]string, payloadJSON string) error {
	var snapshot registry.Record
	if err := json.Unmarshal([]byte(payloadJSON), &snapshot); err != nil {
		return err
	}
	for name, value := range snapshot.Fields() {
		if fields[name] == "" && value != "" {
			fields[name] = value
		}
	}
	return nil
}

// handleRemoteGone covers a registry 404. For an extinction item the absence
// confirms the operation: the local record is deactivated and the item
// completes. Anything else enqueued against a vanished entity can never
// succeed.
func (w *Worker) handleRemoteGone(ctx context.Context, logger *slog.Logger, item *queue.Item) outcome {
	if item.Operation != queue.OpExtinction {
		return w.failTerminal(ctx, logger, item, "entity no longer exists in registry", nil)
	}

	changes := map[string]string{catalog.FieldActive: strconv.FormatBool(false)}
	if err := w.catalog.ApplyChanges(ctx, item.Kind, item.ExternalCode, changes); err != nil {
		return w.failRetryable(ctx, logger, item, "catalog write failed", err)
	}
	logger.Info("entity extinct in registry; deactivated locally")
	return w.complete(ctx, logger, item, 1)
}

func (w *Worker) complete(ctx context.Context, logger *slog.Logger, item *queue.Item, applied int) outcome {
	if err := w.store.Complete(ctx, item.ID, item.ClaimToken); err != nil {
		return w.transitionFailed(logger, "complete", err)
	}
	logger.Info("item completed", logging.Int("fields_applied", applied))
	return outcomeCompleted
}

func (w *Worker) failRetryable(ctx context.Context, logger *slog.Logger, item *queue.Item, message string, cause error) outcome {
	details := ""
	if cause != nil {
		details = cause.Error()
	}

	if item.AttemptsExhausted() {
		if err := w.store.FailTerminal(ctx, item.ID, item.ClaimToken, message, details); err != nil {
			return w.transitionFailed(logger, "fail terminal", err)
		}
		logger.Error("item failed; retry budget exhausted",
			logging.Error(cause),
			logging.Int("attempts", item.Attempts),
		)
		if err := w.notifier.NotifyItemFailed(ctx, item.Kind, item.ExternalCode, message); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
		return outcomeFailed
	}

	delay := NextDelay(item.Attempts, w.cfg.RetryBaseDelay(), w.cfg.RetryMaxDelay())
	next := time.Now().UTC().Add(delay)
	if err := w.store.FailRetry(ctx, item.ID, item.ClaimToken, message, details, next); err != nil {
		return w.transitionFailed(logger, "fail retry", err)
	}
	logger.Warn("item failed; scheduled retry",
		logging.Error(cause),
		logging.Int("attempts", item.Attempts),
		logging.Duration("retry_in", delay),
	)
	return outcomeRetried
}

func (w *Worker) failTerminal(ctx context.Context, logger *slog.Logger, item *queue.Item, message string, cause error) outcome {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	if err := w.store.FailTerminal(ctx, item.ID, item.ClaimToken, message, details); err != nil {
		return w.transitionFailed(logger, "fail terminal", err)
	}
	logger.Error("item failed permanently", logging.String("reason", message), logging.Error(cause))
	if err := w.notifier.NotifyItemFailed(ctx, item.Kind, item.ExternalCode, message); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
	return outcomeFailed
}

func (w *Worker) markConflict(ctx context.Context, logger *slog.Logger, item *queue.Item, result reconcile.Result) outcome {
	details := queue.ConflictDetails{
		Fields:       result.ConflictFields,
		LocalValues:  result.LocalValues,
		RemoteValues: result.RemoteValues,
	}
	if err := w.store.MarkConflict(ctx, item.ID, item.ClaimToken, details); err != nil {
		return w.transitionFailed(logger, "mark conflict", err)
	}
	logger.Warn("conflict detected", logging.Any("fields", result.ConflictFields))
	if err := w.notifier.NotifyConflictDetected(ctx, item.Kind, item.ExternalCode, result.ConflictFields); err != nil {
		logger.Warn("conflict notification failed", logging.Error(err))
	}
	return outcomeConflict
}

// transitionFailed handles a rejected status transition. A lost claim means
// another process already owns the item; anything else is logged and treated
// the same way since this worker must not touch the item again.
func (w *Worker) transitionFailed(logger *slog.Logger, op string, err error) outcome {
	if errors.Is(err, services.ErrClaimLost) {
		logger.Warn("claim lost; abandoning item", logging.String("transition", op))
	} else {
		logger.Error("status transition failed", logging.String("transition", op), logging.Error(err))
	}
	return outcomeClaimLost
}

func (w *Worker) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
