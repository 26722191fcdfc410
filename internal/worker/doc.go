// Package worker drives queue processing.
//
// The worker loop alternates between reclaiming expired claims and claiming
// a fresh batch. Claimed items are grouped by external code: groups run
// concurrently up to the configured limit, while items inside a group run
// sequentially in enqueue order so changes to one entity never race each
// other. Each item is re-fetched from the registry, reconciled against the
// local catalog, and driven to a terminal status through the claim-guarded
// queue transitions.
package worker
