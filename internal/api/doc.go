// Package api exposes the queue administration surface.
//
// It wraps the queue store behind small interfaces and returns
// transport-friendly DTOs, so the CLI and any future HTTP layer share one
// set of operations: inspect the queue, page through conflicts, retry
// failures, resolve conflicts, and remove items.
package api
