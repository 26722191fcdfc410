// Package services defines the error taxonomy and context annotations shared
// by the sync pipeline.
//
// Errors are tagged with sentinel markers so the worker can classify a
// failure without knowing which collaborator produced it: transient failures
// are retried with backoff, validation and configuration failures are
// terminal, and a lost claim aborts the item without writing anything.
package services
