package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ClaimBatch atomically extracts up to limit eligible items for processing.
//
// Eligible means pending, due (next_attempt_at has passed), and not expired.
// Selection is oldest-first by creation time for fairness. The selection and
// the transition to processing happen inside one transaction whose UPDATE is
// conditional on status still being pending, so concurrent claimers on the
// same database each win a disjoint set of rows: a row either belongs to
// exactly one claim token or stays visible to the next claim query. The
// attempt counter is incremented by the same statement — an attempt begins
// when the claim succeeds.
//
// An empty result is not an error. All returned items carry the batch's
// claim token, which every subsequent transition for those items must
// present.
func (s *Store) ClaimBatch(ctx context.Context, limit int) ([]*Item, error) {
	if limit <= 0 {
		return nil, nil
	}
	ctx = ensureContext(ctx)

	var items []*Item
	err := retryOnBusy(ctx, func() error {
		var claimErr error
		items, claimErr = s.claimBatchOnce(ctx, limit)
		return claimErr
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) claimBatchOnce(ctx context.Context, limit int) ([]*Item, error) {
	now := time.Now().UTC()
	timestamp := formatTime(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(
		ctx,
		`SELECT id FROM sync_items
        WHERE status = ? AND next_attempt_at <= ?
          AND (expires_at IS NULL OR expires_at > ?)
        ORDER BY created_at, id
        LIMIT ?`,
		StatusPending,
		timestamp,
		timestamp,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select claimable: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan claimable id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate claimable: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	token := uuid.NewString()
	args := make([]any, 0, len(ids)+4)
	args = append(args, StatusProcessing, token, timestamp, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := tx.ExecContext(
		ctx,
		`UPDATE sync_items
        SET status = ?, claim_token = ?, claimed_at = ?, attempts = attempts + 1, updated_at = ?
        WHERE id IN (`+makePlaceholders(len(ids))+`) AND status = '`+string(StatusPending)+`'`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}

	claimed, err := tx.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM sync_items WHERE claim_token = ? ORDER BY created_at, id`,
		token,
	)
	if err != nil {
		return nil, fmt.Errorf("select claimed: %w", err)
	}
	items, err := collectItems(claimed)
	claimed.Close()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return items, nil
}
