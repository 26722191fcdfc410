// Package main hosts the orgsync CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the daemon runner, queue inspection and
// maintenance, conflict triage, configuration scaffolding, and notification
// checks. It centralizes configuration resolution and store access so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
