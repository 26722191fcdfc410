// Package config loads, normalizes, and validates orgsync configuration.
//
// Configuration lives in a TOML file (default ~/.config/orgsync/config.toml)
// with repository defaults applied for every omitted value. All path fields
// are tilde-expanded and normalized before use, and Validate rejects
// combinations the daemon cannot run with.
package config
