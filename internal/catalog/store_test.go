package catalog_test

import (
	"context"
	"testing"

	"orgsync/internal/catalog"
	"orgsync/internal/queue"
	"orgsync/internal/testsupport"
)

func TestApplyChangesCreatesRecordWithBaseline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	changes := map[string]string{
		catalog.FieldName:       "Ministério da Gestão",
		catalog.FieldAcronym:    "MGI",
		catalog.FieldParentCode: "26",
	}
	if err := store.ApplyChanges(ctx, queue.KindOrganization, "244", changes); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}

	record, err := store.Get(ctx, queue.KindOrganization, "244")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record == nil {
		t.Fatal("expected record to exist")
	}
	if record.Name != "Ministério da Gestão" {
		t.Fatalf("unexpected name %q", record.Name)
	}
	if !record.Active {
		t.Fatal("new records should default to active")
	}
	if record.LastSyncedAt == nil {
		t.Fatal("expected LastSyncedAt to be set")
	}

	baseline := record.Baseline()
	if baseline == nil {
		t.Fatal("expected baseline snapshot")
	}
	if baseline[catalog.FieldName] != record.Name {
		t.Fatalf("baseline name %q does not match record %q", baseline[catalog.FieldName], record.Name)
	}
	if baseline[catalog.FieldActive] != "true" {
		t.Fatalf("baseline active = %q, want true", baseline[catalog.FieldActive])
	}
}

func TestApplyChangesRefreshesBaseline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	seed := map[string]string{catalog.FieldName: "Secretaria A", catalog.FieldAcronym: "SA"}
	if err := store.ApplyChanges(ctx, queue.KindUnit, "9001", seed); err != nil {
		t.Fatalf("seed ApplyChanges: %v", err)
	}

	update := map[string]string{catalog.FieldName: "Secretaria B"}
	if err := store.ApplyChanges(ctx, queue.KindUnit, "9001", update); err != nil {
		t.Fatalf("update ApplyChanges: %v", err)
	}

	record, err := store.Get(ctx, queue.KindUnit, "9001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.Name != "Secretaria B" {
		t.Fatalf("name = %q, want Secretaria B", record.Name)
	}
	if record.Acronym != "SA" {
		t.Fatalf("untouched field changed: acronym = %q", record.Acronym)
	}

	baseline := record.Baseline()
	if baseline[catalog.FieldName] != "Secretaria B" {
		t.Fatalf("baseline not refreshed: %q", baseline[catalog.FieldName])
	}
	if baseline[catalog.FieldAcronym] != "SA" {
		t.Fatalf("baseline lost carried field: %q", baseline[catalog.FieldAcronym])
	}
}

func TestUpdateLocalFieldsLeavesBaselineAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	seed := map[string]string{catalog.FieldName: "Departamento X"}
	if err := store.ApplyChanges(ctx, queue.KindUnit, "555", seed); err != nil {
		t.Fatalf("seed ApplyChanges: %v", err)
	}

	edit := map[string]string{catalog.FieldName: "Departamento X (renomeado)"}
	if err := store.UpdateLocalFields(ctx, queue.KindUnit, "555", edit); err != nil {
		t.Fatalf("UpdateLocalFields: %v", err)
	}

	record, err := store.Get(ctx, queue.KindUnit, "555")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.Name != "Departamento X (renomeado)" {
		t.Fatalf("name = %q", record.Name)
	}

	baseline := record.Baseline()
	if baseline[catalog.FieldName] != "Departamento X" {
		t.Fatalf("baseline should keep last-synced value, got %q", baseline[catalog.FieldName])
	}
}

func TestUpdateLocalFieldsUnknownRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	err := store.UpdateLocalFields(context.Background(), queue.KindUnit, "missing", map[string]string{catalog.FieldName: "x"})
	if err == nil {
		t.Fatal("expected error for unknown record")
	}
}

func TestGetUnknownRecordReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	record, err := store.Get(context.Background(), queue.KindOrganization, "does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record, got %+v", record)
	}
}

func TestBaselineOnNeverSyncedRecord(t *testing.T) {
	record := &catalog.Record{}
	if record.Baseline() != nil {
		t.Fatal("expected nil baseline for empty snapshot")
	}
}

func TestListFiltersByKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	if err := store.ApplyChanges(ctx, queue.KindOrganization, "1", map[string]string{catalog.FieldName: "Org"}); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}
	if err := store.ApplyChanges(ctx, queue.KindUnit, "2", map[string]string{catalog.FieldName: "Unit"}); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}

	orgs, err := store.List(ctx, queue.KindOrganization)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(orgs) != 1 || orgs[0].ExternalCode != "1" {
		t.Fatalf("unexpected organizations: %+v", orgs)
	}
}
