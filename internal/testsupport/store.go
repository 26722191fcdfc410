package testsupport

import (
	"context"
	"testing"

	"orgsync/internal/catalog"
	"orgsync/internal/config"
	"orgsync/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue inserts a queue item for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, params queue.NewItemParams) *queue.Item {
	t.Helper()

	if params.MaxAttempts == 0 {
		params.MaxAttempts = 3
	}
	item, err := store.Enqueue(context.Background(), params)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return item
}
