package catalog

import (
	"encoding/json"
	"strconv"
	"time"

	"orgsync/internal/queue"
)

// Field names shared by catalog records and registry payloads.
const (
	FieldName       = "name"
	FieldAcronym    = "acronym"
	FieldParentCode = "parent_code"
	FieldCategory   = "category"
	FieldActive     = "active"
)

// FieldNames lists every reconcilable field in a stable order.
var FieldNames = []string{FieldName, FieldAcronym, FieldParentCode, FieldCategory, FieldActive}

// Record is a local organizational entity keyed by kind and external code.
type Record struct {
	ID           int64
	Kind         queue.EntityKind
	ExternalCode string
	Name         string
	Acronym      string
	ParentCode   string
	Category     string
	Active       bool
	// SyncedFieldsJSON is the field snapshot from the last successful sync,
	// used as the reconciliation baseline.
	SyncedFieldsJSON string
	LastSyncedAt     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Fields returns the record's current values as a field map.
func (r *Record) Fields() map[string]string {
	return map[string]string{
		FieldName:       r.Name,
		FieldAcronym:    r.Acronym,
		FieldParentCode: r.ParentCode,
		FieldCategory:   r.Category,
		FieldActive:     strconv.FormatBool(r.Active),
	}
}

// Baseline returns the last-synced field snapshot, or nil when the record
// has never synced.
func (r *Record) Baseline() map[string]string {
	if r.SyncedFieldsJSON == "" {
		return nil
	}
	var baseline map[string]string
	if err := json.Unmarshal([]byte(r.SyncedFieldsJSON), &baseline); err != nil {
		return nil
	}
	return baseline
}

func (r *Record) applyFields(changes map[string]string) {
	for field, value := range changes {
		switch field {
		case FieldName:
			r.Name = value
		case FieldAcronym:
			r.Acronym = value
		case FieldParentCode:
			r.ParentCode = value
		case FieldCategory:
			r.Category = value
		case FieldActive:
			r.Active = value == "true"
		}
	}
}
