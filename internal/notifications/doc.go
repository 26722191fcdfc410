// Package notifications delivers sync events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Events cover the moments an operator cares about: conflicts that
// need manual resolution, items that exhausted their retries, and daemon
// lifecycle.
//
// Extend this package if you need alternative transports; the worker depends
// only on the Service interface.
package notifications
