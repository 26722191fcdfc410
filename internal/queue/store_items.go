package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Enqueue inserts a new pending item carrying a remote change record.
func (s *Store) Enqueue(ctx context.Context, params NewItemParams) (*Item, error) {
	if _, ok := ParseEntityKind(string(params.Kind)); !ok {
		return nil, fmt.Errorf("enqueue: unknown entity kind %q", params.Kind)
	}
	if _, ok := ParseOperation(string(params.Operation)); !ok {
		return nil, fmt.Errorf("enqueue: unknown operation %q", params.Operation)
	}
	if strings.TrimSpace(params.ExternalCode) == "" {
		return nil, errors.New("enqueue: external code is required")
	}
	if params.MaxAttempts <= 0 {
		return nil, errors.New("enqueue: max attempts must be positive")
	}

	now := time.Now().UTC()
	timestamp := formatTime(now)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO sync_items (
            entity_type, operation, external_code, payload_json, status,
            attempts, max_attempts, next_attempt_at, expires_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.Kind,
		params.Operation,
		strings.TrimSpace(params.ExternalCode),
		params.PayloadJSON,
		StatusPending,
		0,
		params.MaxAttempts,
		timestamp,
		nullableTime(params.ExpiresAt),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM sync_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns queue items filtered by status set (or all items when no
// status is provided), ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM sync_items`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// ListByExternalCode returns all items for an entity ordered by creation time.
func (s *Store) ListByExternalCode(ctx context.Context, code string) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM sync_items WHERE external_code = ? ORDER BY created_at, id`,
		code,
	)
	if err != nil {
		return nil, fmt.Errorf("list by external code: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// ListConflicts returns a page of conflict items for operator triage, newest
// first.
func (s *Store) ListConflicts(ctx context.Context, limit, offset int) ([]*Item, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM sync_items WHERE status = ? ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`,
		StatusConflict,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM sync_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Remove deletes an item by identifier. Operator action; the worker never
// deletes items.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM sync_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed items from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM sync_items WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all items from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM sync_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to pending for reprocessing, resetting
// their attempt budget. Operator action.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := formatTime(time.Now().UTC())
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE sync_items
            SET status = ?, attempts = 0, next_attempt_at = ?, last_error = NULL,
                error_details = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			now,
			now,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, now, now)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE sync_items
        SET status = ?, attempts = 0, next_attempt_at = ?, last_error = NULL,
            error_details = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}

// ResolveConflict transitions a conflict item out of operator triage: either
// back to pending for another reconciliation pass (retry=true, used after the
// operator amended local state) or to completed (retry=false, remote change
// dismissed). The conflict diagnostics are cleared either way.
func (s *Store) ResolveConflict(ctx context.Context, id int64, retry bool) error {
	target := StatusCompleted
	if retry {
		target = StatusPending
	}
	now := formatTime(time.Now().UTC())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sync_items
        SET status = ?, attempts = 0, next_attempt_at = ?, detected_changes = NULL,
            local_value = NULL, remote_value = NULL, updated_at = ?
        WHERE id = ? AND status = ?`,
		target,
		now,
		now,
		id,
		StatusConflict,
	)
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("resolve conflict: item %d is not in conflict", id)
	}
	return nil
}

func collectItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
