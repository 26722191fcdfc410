package queue

import (
	"context"
	"fmt"
	"time"
)

// DeleteExpiredPending removes pending items whose enqueue deadline passed
// before any worker got to them. Run by the cleanup task on its own
// schedule, outside any claim transaction.
func (s *Store) DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM sync_items
        WHERE status = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		StatusPending,
		formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired pending: %w", err)
	}
	return res.RowsAffected()
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Conflict   int
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusProcessing:
			health.Processing += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		case StatusConflict:
			health.Conflict += count
		}
	}
	return health, nil
}
