// Package reconcile decides what a remote change does to a local record.
//
// The decision is a pure function of three field maps: the authoritative
// remote values, the current local values, and the baseline snapshot from
// the last successful sync. The baseline is what makes conflicts precise: a
// field is locally modified only if its current value differs from the
// baseline, so a remote change to an untouched field applies cleanly while
// independent edits to the same field surface as a conflict.
package reconcile

import "orgsync/internal/catalog"

// Action classifies the outcome of reconciling one remote change.
type Action string

const (
	// ActionApply means the remote changes can be written to the local
	// record without losing local edits.
	ActionApply Action = "apply"
	// ActionNoOp means local state already matches the remote record.
	// Replayed or duplicate queue items land here.
	ActionNoOp Action = "noop"
	// ActionConflict means at least one field was modified both remotely
	// and locally since the last sync. Nothing is written.
	ActionConflict Action = "conflict"
)

// Result carries the reconciliation decision plus the data each action
// needs: the change set for apply, the diff and competing values for
// conflict triage.
type Result struct {
	Action Action
	// Changes holds the field values to apply, including fields the remote
	// side left alone but the baseline refresh must carry forward.
	Changes map[string]string
	// ConflictFields lists fields modified on both sides, in the stable
	// field order.
	ConflictFields []string
	LocalValues    map[string]string
	RemoteValues   map[string]string
}

// Reconcile compares remote, local, and baseline field maps and decides
// whether the remote change applies, is a no-op, or conflicts.
//
// A nil baseline means the record has never synced; remote values win
// unconditionally, which covers both creations and recoveries from a lost
// baseline.
func Reconcile(remote, local, baseline map[string]string) Result {
	changes := make(map[string]string)
	var conflicts []string

	for _, field := range catalog.FieldNames {
		remoteValue, hasRemote := remote[field]
		if !hasRemote {
			continue
		}
		localValue := local[field]

		if remoteValue == localValue {
			continue
		}

		if baseline == nil {
			changes[field] = remoteValue
			continue
		}

		baseValue := baseline[field]
		switch {
		case localValue == baseValue:
			// Local side untouched since last sync; remote advanced.
			changes[field] = remoteValue
		case remoteValue == baseValue:
			// Only the local side moved. The local edit stands.
		default:
			conflicts = append(conflicts, field)
		}
	}

	if len(conflicts) > 0 {
		return Result{
			Action:         ActionConflict,
			ConflictFields: conflicts,
			LocalValues:    pick(local, conflicts),
			RemoteValues:   pick(remote, conflicts),
		}
	}
	if len(changes) == 0 {
		return Result{Action: ActionNoOp}
	}
	return Result{Action: ActionApply, Changes: changes}
}

func pick(values map[string]string, fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, field := range fields {
		out[field] = values[field]
	}
	return out
}
