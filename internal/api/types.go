package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID            int64  `json:"id"`
	Kind          string `json:"kind"`
	Operation     string `json:"operation"`
	ExternalCode  string `json:"externalCode"`
	Status        string `json:"status"`
	Payload       string `json:"payload,omitempty"`
	Attempts      int    `json:"attempts"`
	MaxAttempts   int    `json:"maxAttempts"`
	NextAttemptAt string `json:"nextAttemptAt,omitempty"`
	ExpiresAt     string `json:"expiresAt,omitempty"`
	LastError     string `json:"lastError,omitempty"`
	ErrorDetails  string `json:"errorDetails,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// ConflictItem extends QueueItem with the parsed conflict diagnostics an
// operator needs for triage.
type ConflictItem struct {
	QueueItem
	Fields       []string          `json:"fields"`
	LocalValues  map[string]string `json:"localValues"`
	RemoteValues map[string]string `json:"remoteValues"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// ConflictListResponse wraps one page of conflict items.
type ConflictListResponse struct {
	Items  []ConflictItem `json:"items"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
