// Package logging assembles the structured slog loggers used across orgsync.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so worker code can tag log
// lines with queue item IDs, entity codes, and batch correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
