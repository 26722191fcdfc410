// Package catalog stores the local copy of SIORG organizational records.
//
// Each record keeps its current field values plus a snapshot of the field
// values from its last successful sync. The snapshot is the reconciliation
// baseline: a field whose current value differs from the snapshot has been
// modified locally since the last sync, which is what the conflict rule
// needs to know. ApplyChanges updates the current fields and refreshes the
// baseline in one transaction.
package catalog
