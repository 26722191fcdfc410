package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusConflict   Status = "conflict"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusConflict,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// EntityKind identifies which kind of SIORG entity a queue item affects.
type EntityKind string

const (
	KindOrganization EntityKind = "organization"
	KindUnit         EntityKind = "unit"
	KindCategory     EntityKind = "category"
	KindType         EntityKind = "type"
)

var allEntityKinds = []EntityKind{
	KindOrganization,
	KindUnit,
	KindCategory,
	KindType,
}

// Operation identifies the remote change a queue item carries.
type Operation string

const (
	OpCreation        Operation = "creation"
	OpUpdate          Operation = "update"
	OpExtinction      Operation = "extinction"
	OpHierarchyChange Operation = "hierarchy_change"
	OpMerge           Operation = "merge"
	OpSplit           Operation = "split"
)

var allOperations = []Operation{
	OpCreation,
	OpUpdate,
	OpExtinction,
	OpHierarchyChange,
	OpMerge,
	OpSplit,
}

// Item represents a queue item persisted in sqlite.
type Item struct {
	ID           int64
	Kind         EntityKind
	Operation    Operation
	ExternalCode string
	// PayloadJSON is the remote record snapshot as received; opaque to the
	// queue itself.
	PayloadJSON   string
	Status        Status
	Attempts      int
	MaxAttempts   int
	NextAttemptAt time.Time
	ExpiresAt     *time.Time
	LastError     string
	ErrorDetails  string
	// Conflict diagnostics, populated only when Status is StatusConflict.
	DetectedChanges string
	LocalValue      string
	RemoteValue     string
	// Claim bookkeeping. ClaimToken identifies the batch holding the item
	// while it is processing; ClaimedAt anchors the lease window.
	ClaimToken string
	ClaimedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewItemParams carries the producer-supplied fields of a fresh queue item.
type NewItemParams struct {
	Kind         EntityKind
	Operation    Operation
	ExternalCode string
	PayloadJSON  string
	MaxAttempts  int
	ExpiresAt    *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ParseEntityKind converts a string into a known EntityKind.
func ParseEntityKind(value string) (EntityKind, bool) {
	normalized := EntityKind(strings.ToLower(strings.TrimSpace(value)))
	for _, kind := range allEntityKinds {
		if kind == normalized {
			return kind, true
		}
	}
	return "", false
}

// ParseOperation converts a string into a known Operation.
func ParseOperation(value string) (Operation, bool) {
	normalized := Operation(strings.ToLower(strings.TrimSpace(value)))
	for _, op := range allOperations {
		if op == normalized {
			return op, true
		}
	}
	return "", false
}

// IsTerminal reports whether the status ends automatic processing. Conflict
// items are terminal for the worker; only an operator resolves them.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusConflict:
		return true
	default:
		return false
	}
}

// AttemptsExhausted reports whether the item has used its attempt budget.
func (i *Item) AttemptsExhausted() bool {
	return i.Attempts >= i.MaxAttempts
}

// Expired reports whether the item's enqueue deadline has passed.
func (i *Item) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}
