package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, entity_type, operation, external_code, payload_json, status, attempts, max_attempts, next_attempt_at, expires_at, last_error, error_details, detected_changes, local_value, remote_value, claim_token, claimed_at, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id            int64
		entityType    string
		operation     string
		externalCode  string
		payload       string
		statusStr     string
		attempts      int
		maxAttempts   int
		nextAttemptAt sql.NullString
		expiresAt     sql.NullString
		lastError     sql.NullString
		errorDetails  sql.NullString
		changes       sql.NullString
		localValue    sql.NullString
		remoteValue   sql.NullString
		claimToken    sql.NullString
		claimedAt     sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&entityType,
		&operation,
		&externalCode,
		&payload,
		&statusStr,
		&attempts,
		&maxAttempts,
		&nextAttemptAt,
		&expiresAt,
		&lastError,
		&errorDetails,
		&changes,
		&localValue,
		&remoteValue,
		&claimToken,
		&claimedAt,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		Kind:            EntityKind(entityType),
		Operation:       Operation(operation),
		ExternalCode:    externalCode,
		PayloadJSON:     payload,
		Status:          Status(statusStr),
		Attempts:        attempts,
		MaxAttempts:     maxAttempts,
		LastError:       lastError.String,
		ErrorDetails:    errorDetails.String,
		DetectedChanges: changes.String,
		LocalValue:      localValue.String,
		RemoteValue:     remoteValue.String,
		ClaimToken:      claimToken.String,
	}

	if next, err := parseTimeString(nextAttemptAt.String); err == nil {
		item.NextAttemptAt = next
	}
	if expiresAt.Valid {
		if expires, err := parseTimeString(expiresAt.String); err == nil {
			item.ExpiresAt = &expires
		}
	}
	if claimedAt.Valid {
		if claimed, err := parseTimeString(claimedAt.String); err == nil {
			item.ClaimedAt = &claimed
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
