package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"orgsync/internal/config"
	"orgsync/internal/queue"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS org_records (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type    TEXT NOT NULL,
    external_code  TEXT NOT NULL,
    name           TEXT NOT NULL DEFAULT '',
    acronym        TEXT NOT NULL DEFAULT '',
    parent_code    TEXT NOT NULL DEFAULT '',
    category       TEXT NOT NULL DEFAULT '',
    active         INTEGER NOT NULL DEFAULT 1,
    synced_fields  TEXT,
    last_synced_at TEXT,
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL,
    UNIQUE (entity_type, external_code)
);
`

// Store manages local organizational records backed by sqlite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "catalog.db")
	// busy_timeout must be set on every pooled connection, not just the one
	// that happens to run the Exec below, so it goes in the DSN. _txlock makes
	// transactions take the write lock up front; otherwise a deferred
	// transaction that reads before writing fails with SQLITE_BUSY instead of
	// waiting when another writer commits in between.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const recordColumns = "id, entity_type, external_code, name, acronym, parent_code, category, active, synced_fields, last_synced_at, created_at, updated_at"

// Get fetches a record by kind and external code. Returns nil when the
// entity is unknown locally.
func (s *Store) Get(ctx context.Context, kind queue.EntityKind, code string) (*Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM org_records WHERE entity_type = ? AND external_code = ?`,
		kind,
		code,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// List returns all records of a kind ordered by external code.
func (s *Store) List(ctx context.Context, kind queue.EntityKind) ([]*Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM org_records WHERE entity_type = ? ORDER BY external_code`,
		kind,
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ApplyChanges applies a reconciled change set to a record, creating it when
// absent, and refreshes the sync baseline to the resulting field values. The
// update and the baseline refresh are one transaction, so a record is never
// observed with new values but a stale baseline.
func (s *Store) ApplyChanges(ctx context.Context, kind queue.EntityKind, code string, changes map[string]string) error {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM org_records WHERE entity_type = ? AND external_code = ?`,
		kind,
		code,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		record = &Record{Kind: kind, ExternalCode: code, Active: true}
		err = nil
	}
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}

	record.applyFields(changes)
	snapshot, err := json.Marshal(record.Fields())
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}

	if record.ID == 0 {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO org_records (
                entity_type, external_code, name, acronym, parent_code, category,
                active, synced_fields, last_synced_at, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			kind,
			code,
			record.Name,
			record.Acronym,
			record.ParentCode,
			record.Category,
			boolToInt(record.Active),
			string(snapshot),
			timestamp,
			timestamp,
			timestamp,
		)
	} else {
		_, err = tx.ExecContext(
			ctx,
			`UPDATE org_records
            SET name = ?, acronym = ?, parent_code = ?, category = ?, active = ?,
                synced_fields = ?, last_synced_at = ?, updated_at = ?
            WHERE id = ?`,
			record.Name,
			record.Acronym,
			record.ParentCode,
			record.Category,
			boolToInt(record.Active),
			string(snapshot),
			timestamp,
			timestamp,
			record.ID,
		)
	}
	if err != nil {
		return fmt.Errorf("persist record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply: %w", err)
	}
	return nil
}

// UpdateLocalFields changes a record's current values without touching the
// sync baseline. This is the operator-edit path; reconciliation will see the
// edited fields as locally modified.
func (s *Store) UpdateLocalFields(ctx context.Context, kind queue.EntityKind, code string, changes map[string]string) error {
	record, err := s.Get(ctx, kind, code)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("update local fields: no record for %s %s", kind, code)
	}

	record.applyFields(changes)
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE org_records
        SET name = ?, acronym = ?, parent_code = ?, category = ?, active = ?, updated_at = ?
        WHERE id = ?`,
		record.Name,
		record.Acronym,
		record.ParentCode,
		record.Category,
		boolToInt(record.Active),
		time.Now().UTC().Format(time.RFC3339Nano),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("update local fields: %w", err)
	}
	return nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           int64
		entityType   string
		externalCode string
		name         string
		acronym      string
		parentCode   string
		category     string
		active       int
		synced       sql.NullString
		lastSyncedAt sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&entityType,
		&externalCode,
		&name,
		&acronym,
		&parentCode,
		&category,
		&active,
		&synced,
		&lastSyncedAt,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:               id,
		Kind:             queue.EntityKind(entityType),
		ExternalCode:     externalCode,
		Name:             name,
		Acronym:          acronym,
		ParentCode:       parentCode,
		Category:         category,
		Active:           active != 0,
		SyncedFieldsJSON: synced.String,
	}
	if lastSyncedAt.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, lastSyncedAt.String); err == nil {
			record.LastSyncedAt = &ts
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		record.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		record.UpdatedAt = ts
	}
	return record, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
