package worker

import (
	"context"
	"testing"
	"time"

	"orgsync/internal/config"
	"orgsync/internal/queue"
	"orgsync/internal/testsupport"
)

func TestCleanupSweepsExpiredPending(t *testing.T) {
	cfg := testsupport.NewConfig(t, func(cfg *config.Config) {
		cfg.Cleanup.Enabled = true
		cfg.Cleanup.IntervalSeconds = 3600
	})
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	testsupport.Enqueue(t, store, queue.NewItemParams{
		Kind: queue.KindUnit, Operation: queue.OpUpdate, ExternalCode: "1", ExpiresAt: &past,
	})
	keeper := testsupport.Enqueue(t, store, queue.NewItemParams{
		Kind: queue.KindUnit, Operation: queue.OpUpdate, ExternalCode: "2",
	})

	cleanup := NewCleanup(cfg, store, nil)
	if err := cleanup.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := cleanup.Start(ctx); err == nil {
		t.Fatal("second Start should fail")
	}
	defer cleanup.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		items, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(items) == 1 {
			if items[0].ID != keeper.ID {
				t.Fatalf("wrong survivor: %+v", items[0])
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expired item was not swept")
}

func TestCleanupStopIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	cleanup := NewCleanup(cfg, store, nil)
	if err := cleanup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cleanup.Stop()
	cleanup.Stop()
}
