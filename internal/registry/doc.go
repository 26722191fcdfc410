// Package registry talks to the SIORG structure API.
//
// The client re-fetches the authoritative record for a queue item before
// reconciliation, so a stale enqueued payload never overwrites fresher
// remote state. HTTP failures are classified into the service error
// taxonomy: 5xx and transport errors are transient, 404 is not found, and
// other 4xx responses are validation failures.
package registry
