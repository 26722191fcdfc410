package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"orgsync/internal/queue"
	"orgsync/internal/testsupport"
)

func TestClaimBatchMarksProcessingAndIncrementsAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.Enqueue(t, store, queue.NewItemParams{
		Kind: queue.KindOrganization, Operation: queue.OpUpdate, ExternalCode: "244",
	})

	claimed, err := store.ClaimBatch(ctx, 5)
	if err != nil {
		t.Fatalf("ClaimBatch: %v", err)
	}
	if len(claimed) != 1 {
		t.Fatalf("claimed %d items, want 1", len(claimed))
	}

	got := claimed[0]
	if got.ID != item.ID {
		t.Fatalf("claimed item %d, want %d", got.ID, item.ID)
	}
	if got.Status != queue.StatusProcessing {
		t.Fatalf("status = %s, want processing", got.Status)
	}
	if got.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1 after claim", got.Attempts)
	}
	if got.ClaimToken == "" {
		t.Fatal("claim token should be set")
	}
	if got.ClaimedAt == nil {
		t.Fatal("claimed_at should be set")
	}
}

func TestClaimBatchSharesOneTokenPerBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, code := range []string{"1", "2", "3"} {
		testsupport.Enqueue(t, store, queue.NewItemParams{
			Kind: queue.KindUnit, Operation: queue.OpCreation, ExternalCode: code,
		})
	}

	claimed, err := store.ClaimBatch(ctx, 10)
	if err != nil {
		t.Fatalf("ClaimBatch: %v", err)
	}
	if len(claimed) != 3 {
		t.Fatalf("claimed %d items, want 3", len(claimed))
	}
	token := claimed[0].ClaimToken
	for _, item := range claimed {
		if item.ClaimToken != token {
			t.Fatalf("mixed claim tokens in one batch: %q vs %q", item.ClaimToken, token)
		}
	}
}

func TestClaimBatchSkipsFutureAndExpiredItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ready := testsupport.Enqueue(t, store, queue.NewItemParams{
		Kind: queue.KindUnit, Operation: queue.OpUpdate, ExternalCode: "ready",
	})

	past := time.Now().UTC().Add(-time.Minute)
	testsupport.Enqueue(t, store, queue.NewItemParams{
		Kind: queue.KindUnit, Operation: queue.OpUpdate, ExternalCode: "expired", ExpiresAt: &past,
	})

	// Push an item's next attempt into the future via a retry transition.
	deferred := testsupport.Enqueue(t, store, queue.NewItemParams{
		Kind: queue.KindUnit, Operation: queue.OpUpdate, ExternalCode: "deferred",
	})
	claimed, err := store.ClaimBatch(ctx, 10)
	if err != nil {
		t.Fatalf("seed ClaimBatch: %v", err)
	}
	for _, item := range claimed {
		switch item.ID {
		case deferred.ID:
			future := time.Now().UTC().Add(time.Hour)
			if err := store.FailRetry(ctx, item.ID, item.ClaimToken, "timeout", "", future); err != nil {
				t.Fatalf("FailRetry: %v", err)
			}
		case ready.ID:
			now := time.Now().UTC().Add(-time.Second)
			if err := store.FailRetry(ctx, item.ID, item.ClaimToken, "timeout", "", now); err != nil {
				t.Fatalf("FailRetry: %v", err)
			}
		}
	}

	claimed, err = store.ClaimBatch(ctx, 10)
	if err != nil {
		t.Fatalf("ClaimBatch: %v", err)
	}
	if len(claimed) != 1 {
		t.Fatalf("claimed %d items, want only the due one", len(claimed))
	}
	if claimed[0].ID != ready.ID {
		t.Fatalf("claimed item %d, want %d", claimed[0].ID, ready.ID)
	}
}

func TestClaimBatchOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.Enqueue(t, store, queue.NewItemParams{
		Kind: queue.KindUnit, Operation: queue.OpUpdate, ExternalCode: "old",
	})
	testsupport.Enqueue(t, store, queue.NewItemParams{
		Kind: queue.KindUnit, Operation: queue.OpUpdate, ExternalCode: "new",
	})

	claimed, err := store.ClaimBatch(ctx, 1)
	if err != nil {
		t.Fatalf("ClaimBatch: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != first.ID {
		t.Fatalf("expected oldest item, got %+v", claimed)
	}
}

func TestClaimBatchZeroLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.Enqueue(t, store, queue.NewItemParams{
		Kind: queue.KindUnit, Operation: queue.OpUpdate, ExternalCode: "1",
	})

	claimed, err := store.ClaimBatch(context.Background(), 0)
	if err != nil {
		t.Fatalf("ClaimBatch: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("claimed %d items with zero limit", len(claimed))
	}
}

func TestConcurrentClaimersNeverShareItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const total = 40
	for i := 0; i < total; i++ {
		testsupport.Enqueue(t, store, queue.NewItemParams{
			Kind:         queue.KindUnit,
			Operation:    queue.OpUpdate,
			ExternalCode: "code-" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
		})
	}

	const claimers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed = make(map[int64]int)
	)
	for w := 0; w < claimers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				items, err := store.ClaimBatch(ctx, 3)
				if err != nil {
					t.Errorf("ClaimBatch: %v", err)
					return
				}
				if len(items) == 0 {
					return
				}
				mu.Lock()
				for _, item := range items {
					claimed[item.ID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(claimed) != total {
		t.Fatalf("claimed %d distinct items, want %d", len(claimed), total)
	}
	for id, count := range claimed {
		if count != 1 {
			t.Fatalf("item %d claimed %d times", id, count)
		}
	}
}
