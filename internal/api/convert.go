package api

import (
	"encoding/json"

	"orgsync/internal/queue"
)

// FromQueueItem converts a persisted queue item into its DTO form.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	dto := QueueItem{
		ID:           item.ID,
		Kind:         string(item.Kind),
		Operation:    string(item.Operation),
		ExternalCode: item.ExternalCode,
		Status:       string(item.Status),
		Payload:      item.PayloadJSON,
		Attempts:     item.Attempts,
		MaxAttempts:  item.MaxAttempts,
		LastError:    item.LastError,
		ErrorDetails: item.ErrorDetails,
	}
	if !item.NextAttemptAt.IsZero() {
		dto.NextAttemptAt = item.NextAttemptAt.Format(dateTimeFormat)
	}
	if item.ExpiresAt != nil {
		dto.ExpiresAt = item.ExpiresAt.Format(dateTimeFormat)
	}
	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.Format(dateTimeFormat)
	}
	return dto
}

// FromQueueItems converts a slice of queue items into DTOs.
func FromQueueItems(items []*queue.Item) []QueueItem {
	dtos := make([]QueueItem, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, FromQueueItem(item))
	}
	return dtos
}

// FromConflictItem converts a conflict queue item, parsing its stored
// diagnostics. Malformed diagnostics degrade to empty values rather than
// failing the listing.
func FromConflictItem(item *queue.Item) ConflictItem {
	conflict := ConflictItem{QueueItem: FromQueueItem(item)}
	if item == nil {
		return conflict
	}
	if item.DetectedChanges != "" {
		_ = json.Unmarshal([]byte(item.DetectedChanges), &conflict.Fields)
	}
	if item.LocalValue != "" {
		_ = json.Unmarshal([]byte(item.LocalValue), &conflict.LocalValues)
	}
	if item.RemoteValue != "" {
		_ = json.Unmarshal([]byte(item.RemoteValue), &conflict.RemoteValues)
	}
	return conflict
}

// MergeQueueStats normalizes store stats into a string-keyed map that always
// carries every known status.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	merged := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		merged[string(status)] = stats[status]
	}
	return merged
}
