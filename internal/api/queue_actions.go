package api

import (
	"context"

	"orgsync/internal/queue"
)

// QueueMutator captures the queue operations the admin actions drive.
type QueueMutator interface {
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
	Remove(ctx context.Context, id int64) (bool, error)
	RetryFailed(ctx context.Context, ids ...int64) (int64, error)
	ResolveConflict(ctx context.Context, id int64, retry bool) error
	ClearCompleted(ctx context.Context) (int64, error)
}

type RetryItemOutcome string

const (
	RetryItemUpdated   RetryItemOutcome = "retried"
	RetryItemNotFound  RetryItemOutcome = "not_found"
	RetryItemNotFailed RetryItemOutcome = "not_failed"
)

type RetryItemResult struct {
	ID      int64            `json:"id"`
	Outcome RetryItemOutcome `json:"outcome"`
}

type RetryItemsResult struct {
	UpdatedCount int64             `json:"updatedCount"`
	Items        []RetryItemResult `json:"items"`
}

// RetryFailedItemsByID validates IDs and retries only failed items.
func RetryFailedItemsByID(ctx context.Context, store QueueMutator, ids []int64) (RetryItemsResult, error) {
	result := RetryItemsResult{Items: make([]RetryItemResult, 0, len(ids))}
	for _, id := range ids {
		item, err := store.GetByID(ctx, id)
		if err != nil {
			return RetryItemsResult{}, err
		}
		if item == nil {
			result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemNotFound})
			continue
		}
		if item.Status != queue.StatusFailed {
			result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemNotFailed})
			continue
		}
		updated, err := store.RetryFailed(ctx, id)
		if err != nil {
			return RetryItemsResult{}, err
		}
		if updated > 0 {
			result.UpdatedCount += updated
			result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemUpdated})
			continue
		}
		result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemNotFailed})
	}
	return result, nil
}

type ResolveOutcome string

const (
	ResolveResolved    ResolveOutcome = "resolved"
	ResolveNotFound    ResolveOutcome = "not_found"
	ResolveNotConflict ResolveOutcome = "not_conflict"
)

type ResolveItemResult struct {
	ID      int64          `json:"id"`
	Outcome ResolveOutcome `json:"outcome"`
}

type ResolveItemsResult struct {
	ResolvedCount int64               `json:"resolvedCount"`
	Items         []ResolveItemResult `json:"items"`
}

// ResolveConflictsByID resolves conflict items: retry=true re-queues them for
// another reconciliation pass, retry=false dismisses the remote change.
func ResolveConflictsByID(ctx context.Context, store QueueMutator, ids []int64, retry bool) (ResolveItemsResult, error) {
	result := ResolveItemsResult{Items: make([]ResolveItemResult, 0, len(ids))}
	for _, id := range ids {
		item, err := store.GetByID(ctx, id)
		if err != nil {
			return ResolveItemsResult{}, err
		}
		if item == nil {
			result.Items = append(result.Items, ResolveItemResult{ID: id, Outcome: ResolveNotFound})
			continue
		}
		if item.Status != queue.StatusConflict {
			result.Items = append(result.Items, ResolveItemResult{ID: id, Outcome: ResolveNotConflict})
			continue
		}
		if err := store.ResolveConflict(ctx, id, retry); err != nil {
			// Raced with another resolver; report rather than fail the batch.
			result.Items = append(result.Items, ResolveItemResult{ID: id, Outcome: ResolveNotConflict})
			continue
		}
		result.ResolvedCount++
		result.Items = append(result.Items, ResolveItemResult{ID: id, Outcome: ResolveResolved})
	}
	return result, nil
}

type RemoveItemOutcome string

const (
	RemoveItemDeleted  RemoveItemOutcome = "deleted"
	RemoveItemNotFound RemoveItemOutcome = "not_found"
)

type RemoveItemResult struct {
	ID      int64             `json:"id"`
	Outcome RemoveItemOutcome `json:"outcome"`
}

type RemoveItemsResult struct {
	DeletedCount int64              `json:"deletedCount"`
	Items        []RemoveItemResult `json:"items"`
}

// RemoveItemsByID deletes queue items by identifier.
func RemoveItemsByID(ctx context.Context, store QueueMutator, ids []int64) (RemoveItemsResult, error) {
	result := RemoveItemsResult{Items: make([]RemoveItemResult, 0, len(ids))}
	for _, id := range ids {
		removed, err := store.Remove(ctx, id)
		if err != nil {
			return RemoveItemsResult{}, err
		}
		if removed {
			result.DeletedCount++
			result.Items = append(result.Items, RemoveItemResult{ID: id, Outcome: RemoveItemDeleted})
			continue
		}
		result.Items = append(result.Items, RemoveItemResult{ID: id, Outcome: RemoveItemNotFound})
	}
	return result, nil
}
