package testsupport

import (
	"path/filepath"
	"testing"

	"orgsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Registry.BaseURL = "http://127.0.0.1:0"
	cfg.Sync.MaxAttempts = 3
	cfg.Sync.RetryBaseDelaySeconds = 1
	cfg.Sync.RetryMaxDelaySeconds = 60

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMaxAttempts overrides the attempt budget on the test config.
func WithMaxAttempts(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sync.MaxAttempts = n
	}
}

// WithBatchSize overrides the claim batch size on the test config.
func WithBatchSize(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sync.BatchSize = n
	}
}
