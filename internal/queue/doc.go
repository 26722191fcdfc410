// Package queue owns the durable sync queue backing the SIORG reconciliation
// pipeline.
//
// Every piece of persisted worker state lives here: the queue item model,
// the sqlite schema, the claim protocol that hands a batch of eligible items
// to exactly one worker, the token-guarded status transitions, lease reclaim
// for abandoned claims, and the cleanup sweep of expired pending items.
// Claim exclusivity is enforced by the store's conditional updates, never by
// in-process locks, so correctness holds across worker processes sharing the
// database.
package queue
