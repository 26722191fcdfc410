package api_test

import (
	"context"
	"testing"

	"orgsync/internal/api"
	"orgsync/internal/queue"
	"orgsync/internal/testsupport"
)

func markFailed(t *testing.T, store *queue.Store, code string) *queue.Item {
	t.Helper()
	ctx := context.Background()
	item := testsupport.Enqueue(t, store, queue.NewItemParams{
		Kind: queue.KindUnit, Operation: queue.OpUpdate, ExternalCode: code, MaxAttempts: 1,
	})
	claimed, err := store.ClaimBatch(ctx, 100)
	if err != nil {
		t.Fatalf("ClaimBatch: %v", err)
	}
	for _, c := range claimed {
		if c.ID == item.ID {
			if err := store.FailTerminal(ctx, c.ID, c.ClaimToken, "boom", ""); err != nil {
				t.Fatalf("FailTerminal: %v", err)
			}
			return item
		}
	}
	t.Fatalf("item %d was not claimed", item.ID)
	return nil
}

func TestRetryFailedItemsByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	failed := markFailed(t, store, "1")
	pending := testsupport.Enqueue(t, store, queue.NewItemParams{
		Kind: queue.KindUnit, Operation: queue.OpUpdate, ExternalCode: "2",
	})

	result, err := api.RetryFailedItemsByID(ctx, store, []int64{failed.ID, pending.ID, 9999})
	if err != nil {
		t.Fatalf("RetryFailedItemsByID: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("updated = %d, want 1", result.UpdatedCount)
	}
	outcomes := map[int64]api.RetryItemOutcome{}
	for _, r := range result.Items {
		outcomes[r.ID] = r.Outcome
	}
	if outcomes[failed.ID] != api.RetryItemUpdated {
		t.Fatalf("failed item outcome = %s", outcomes[failed.ID])
	}
	if outcomes[pending.ID] != api.RetryItemNotFailed {
		t.Fatalf("pending item outcome = %s", outcomes[pending.ID])
	}
	if outcomes[9999] != api.RetryItemNotFound {
		t.Fatalf("missing item outcome = %s", outcomes[9999])
	}

	refreshed, _ := store.GetByID(ctx, failed.ID)
	if refreshed.Status != queue.StatusPending {
		t.Fatalf("status = %s after retry", refreshed.Status)
	}
}

func TestResolveConflictsByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	retryItem := markConflict(t, store, "10")
	dismissItem := markConflict(t, store, "11")
	pending := testsupport.Enqueue(t, store, queue.NewItemParams{
		Kind: queue.KindUnit, Operation: queue.OpUpdate, ExternalCode: "12",
	})

	result, err := api.ResolveConflictsByID(ctx, store, []int64{retryItem.ID, pending.ID}, true)
	if err != nil {
		t.Fatalf("ResolveConflictsByID retry: %v", err)
	}
	if result.ResolvedCount != 1 {
		t.Fatalf("resolved = %d", result.ResolvedCount)
	}
	refreshed, _ := store.GetByID(ctx, retryItem.ID)
	if refreshed.Status != queue.StatusPending {
		t.Fatalf("retry resolution status = %s", refreshed.Status)
	}

	result, err = api.ResolveConflictsByID(ctx, store, []int64{dismissItem.ID}, false)
	if err != nil {
		t.Fatalf("ResolveConflictsByID dismiss: %v", err)
	}
	if result.ResolvedCount != 1 {
		t.Fatalf("resolved = %d", result.ResolvedCount)
	}
	refreshed, _ = store.GetByID(ctx, dismissItem.ID)
	if refreshed.Status != queue.StatusCompleted {
		t.Fatalf("dismiss resolution status = %s", refreshed.Status)
	}
}

func TestRemoveItemsByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.Enqueue(t, store, queue.NewItemParams{
		Kind: queue.KindUnit, Operation: queue.OpUpdate, ExternalCode: "1",
	})

	result, err := api.RemoveItemsByID(ctx, store, []int64{item.ID, 9999})
	if err != nil {
		t.Fatalf("RemoveItemsByID: %v", err)
	}
	if result.DeletedCount != 1 {
		t.Fatalf("deleted = %d", result.DeletedCount)
	}
	if result.Items[1].Outcome != api.RemoveItemNotFound {
		t.Fatalf("missing item outcome = %s", result.Items[1].Outcome)
	}
}
