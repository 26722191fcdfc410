package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"orgsync/internal/services"
)

// Each transition below is a single conditional UPDATE guarded by
// `status = processing AND claim_token = ?`. A transition that matches zero
// rows means another process already advanced the item (its lease expired
// and the item was reclaimed, or a duplicate worker lost the race); the
// caller gets services.ErrClaimLost and must not write anything else.

// Complete marks a processing item as successfully reconciled and clears its
// failure diagnostics.
func (s *Store) Complete(ctx context.Context, id int64, claimToken string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sync_items
        SET status = ?, last_error = NULL, error_details = NULL,
            claim_token = NULL, claimed_at = NULL, updated_at = ?
        WHERE id = ? AND status = ? AND claim_token = ?`,
		StatusCompleted,
		formatTime(time.Now().UTC()),
		id,
		StatusProcessing,
		claimToken,
	)
	if err != nil {
		return fmt.Errorf("complete item: %w", err)
	}
	return requireClaim(res, id, "complete")
}

// FailRetry records a retryable failure and reschedules the item.
func (s *Store) FailRetry(ctx context.Context, id int64, claimToken, lastError, errorDetails string, nextAttemptAt time.Time) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sync_items
        SET status = ?, last_error = ?, error_details = ?, next_attempt_at = ?,
            claim_token = NULL, claimed_at = NULL, updated_at = ?
        WHERE id = ? AND status = ? AND claim_token = ?`,
		StatusPending,
		nullableString(lastError),
		nullableString(errorDetails),
		formatTime(nextAttemptAt),
		formatTime(time.Now().UTC()),
		id,
		StatusProcessing,
		claimToken,
	)
	if err != nil {
		return fmt.Errorf("fail item for retry: %w", err)
	}
	return requireClaim(res, id, "fail retry")
}

// FailTerminal records a permanent failure. The item is never retried
// automatically; operators may retry it explicitly.
func (s *Store) FailTerminal(ctx context.Context, id int64, claimToken, lastError, errorDetails string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sync_items
        SET status = ?, last_error = ?, error_details = ?,
            claim_token = NULL, claimed_at = NULL, updated_at = ?
        WHERE id = ? AND status = ? AND claim_token = ?`,
		StatusFailed,
		nullableString(lastError),
		nullableString(errorDetails),
		formatTime(time.Now().UTC()),
		id,
		StatusProcessing,
		claimToken,
	)
	if err != nil {
		return fmt.Errorf("fail item terminally: %w", err)
	}
	return requireClaim(res, id, "fail terminal")
}

// ConflictDetails carries the structural diff and both competing values for
// operator review.
type ConflictDetails struct {
	Fields       []string          `json:"fields"`
	LocalValues  map[string]string `json:"local_values"`
	RemoteValues map[string]string `json:"remote_values"`
}

// MarkConflict parks a processing item for manual resolution, capturing the
// diff and both competing values. The attempt counter is left untouched:
// conflict is a classification, not a failure.
func (s *Store) MarkConflict(ctx context.Context, id int64, claimToken string, details ConflictDetails) error {
	fields, err := json.Marshal(details.Fields)
	if err != nil {
		return fmt.Errorf("marshal conflict fields: %w", err)
	}
	localValues, err := json.Marshal(details.LocalValues)
	if err != nil {
		return fmt.Errorf("marshal local values: %w", err)
	}
	remoteValues, err := json.Marshal(details.RemoteValues)
	if err != nil {
		return fmt.Errorf("marshal remote values: %w", err)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE sync_items
        SET status = ?, detected_changes = ?, local_value = ?, remote_value = ?,
            claim_token = NULL, claimed_at = NULL, updated_at = ?
        WHERE id = ? AND status = ? AND claim_token = ?`,
		StatusConflict,
		string(fields),
		string(localValues),
		string(remoteValues),
		formatTime(time.Now().UTC()),
		id,
		StatusProcessing,
		claimToken,
	)
	if err != nil {
		return fmt.Errorf("mark conflict: %w", err)
	}
	return requireClaim(res, id, "mark conflict")
}

// ReclaimExpiredClaims returns processing items whose claim predates cutoff
// back to pending so another worker can pick them up. The attempt already
// consumed by the abandoned claim stays counted.
func (s *Store) ReclaimExpiredClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sync_items
        SET status = ?, claim_token = NULL, claimed_at = NULL,
            last_error = 'claim lease expired', next_attempt_at = ?, updated_at = ?
        WHERE status = ? AND claimed_at IS NOT NULL AND claimed_at < ?`,
		StatusPending,
		formatTime(now),
		formatTime(now),
		StatusProcessing,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim expired claims: %w", err)
	}
	return res.RowsAffected()
}

func requireClaim(res interface{ RowsAffected() (int64, error) }, id int64, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrClaimLost, "queue", op, fmt.Sprintf("item %d", id), nil)
	}
	return nil
}
