package main

import (
	"context"
	"fmt"
	"testing"

	"orgsync/internal/catalog"
	"orgsync/internal/queue"
	"orgsync/internal/testsupport"
)

func markTestConflict(t *testing.T, env *cliTestEnv, code string) *queue.Item {
	t.Helper()

	item := testsupport.Enqueue(t, env.store, queue.NewItemParams{
		Kind:         queue.KindUnit,
		Operation:    queue.OpUpdate,
		ExternalCode: code,
	})
	claimed := claimOne(t, env.store)
	details := queue.ConflictDetails{
		Fields:       []string{catalog.FieldName},
		LocalValues:  map[string]string{catalog.FieldName: "Diretoria de TI"},
		RemoteValues: map[string]string{catalog.FieldName: "Diretoria de Tecnologia"},
	}
	if err := env.store.MarkConflict(context.Background(), claimed.ID, claimed.ClaimToken, details); err != nil {
		t.Fatalf("MarkConflict: %v", err)
	}
	return item
}

func TestConflictsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "conflicts", "list")
	if err != nil {
		t.Fatalf("conflicts list: %v", err)
	}
	requireContains(t, out, "No conflicts")
}

func TestConflictsListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	item := markTestConflict(t, env, "7013")

	out, _, err := runCLI(t, env, "conflicts", "list")
	if err != nil {
		t.Fatalf("conflicts list: %v", err)
	}
	requireContains(t, out, "7013")

	out, _, err = runCLI(t, env, "conflicts", "show", fmt.Sprintf("%d", item.ID))
	if err != nil {
		t.Fatalf("conflicts show: %v", err)
	}
	requireContains(t, out, catalog.FieldName)
	requireContains(t, out, "Diretoria de TI")
	requireContains(t, out, "Diretoria de Tecnologia")
}

func TestConflictsShowRejectsNonConflict(t *testing.T) {
	env := setupCLITestEnv(t)

	item := testsupport.Enqueue(t, env.store, queue.NewItemParams{
		Kind:         queue.KindUnit,
		Operation:    queue.OpUpdate,
		ExternalCode: "1",
	})

	_, _, err := runCLI(t, env, "conflicts", "show", fmt.Sprintf("%d", item.ID))
	if err == nil {
		t.Fatal("expected error for non-conflict item")
	}
}

func TestConflictsResolveDismiss(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	item := markTestConflict(t, env, "7013")

	out, _, err := runCLI(t, env, "conflicts", "resolve", fmt.Sprintf("%d", item.ID), "--dismiss")
	if err != nil {
		t.Fatalf("conflicts resolve: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Item %d dismissed", item.ID))

	updated, err := env.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != queue.StatusCompleted {
		t.Fatalf("expected completed after dismiss, got %s", updated.Status)
	}
}

func TestConflictsResolveRequeue(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	item := markTestConflict(t, env, "7014")

	out, _, err := runCLI(t, env, "conflicts", "resolve", fmt.Sprintf("%d", item.ID), "--requeue")
	if err != nil {
		t.Fatalf("conflicts resolve: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Item %d re-queued", item.ID))

	updated, err := env.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending after requeue, got %s", updated.Status)
	}
}

func TestConflictsResolveRequiresMode(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "conflicts", "resolve", "1")
	if err == nil {
		t.Fatal("expected error when neither --requeue nor --dismiss given")
	}
}
