package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Registry contains connection settings for the SIORG registry API.
type Registry struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Sync contains worker loop tuning: claim batching, retry policy, and the
// claim lease window.
type Sync struct {
	BatchSize             int `toml:"batch_size"`
	PollIntervalSeconds   int `toml:"poll_interval_seconds"`
	WorkerConcurrency     int `toml:"worker_concurrency"`
	MaxAttempts           int `toml:"max_attempts"`
	RetryBaseDelaySeconds int `toml:"retry_base_delay_seconds"`
	RetryMaxDelaySeconds  int `toml:"retry_max_delay_seconds"`
	ClaimLeaseSeconds     int `toml:"claim_lease_seconds"`
	ErrorRetrySeconds     int `toml:"error_retry_seconds"`
}

// Cleanup contains settings for the expired-item sweep.
type Cleanup struct {
	Enabled         bool `toml:"enabled"`
	IntervalSeconds int  `toml:"interval_seconds"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for orgsync.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Registry: SIORG API connection
//   - Sync: batch size, polling, retry/backoff, claim lease
//   - Cleanup: expired-item sweep
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Registry      Registry      `toml:"registry"`
	Sync          Sync          `toml:"sync"`
	Cleanup       Cleanup       `toml:"cleanup"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/orgsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists: %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the data and log directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// PollInterval returns the worker idle sleep as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Sync.PollIntervalSeconds) * time.Second
}

// RetryBaseDelay returns the backoff base delay as a duration.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Sync.RetryBaseDelaySeconds) * time.Second
}

// RetryMaxDelay returns the backoff delay ceiling as a duration.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Sync.RetryMaxDelaySeconds) * time.Second
}

// ClaimLease returns the claim lease window as a duration.
func (c *Config) ClaimLease() time.Duration {
	return time.Duration(c.Sync.ClaimLeaseSeconds) * time.Second
}

// CleanupInterval returns the expired-item sweep interval as a duration.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Cleanup.IntervalSeconds) * time.Second
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return abs, nil
}

func (c *Config) normalize() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	if c.Registry.Token == "" {
		if value, ok := os.LookupEnv("SIORG_TOKEN"); ok {
			c.Registry.Token = value
		}
	}
	c.Registry.BaseURL = strings.TrimRight(strings.TrimSpace(c.Registry.BaseURL), "/")
	if c.Registry.BaseURL == "" {
		c.Registry.BaseURL = defaultRegistryBaseURL
	}
	if c.Registry.TimeoutSeconds <= 0 {
		c.Registry.TimeoutSeconds = defaultRegistryTimeoutSeconds
	}

	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = defaultBatchSize
	}
	if c.Sync.PollIntervalSeconds <= 0 {
		c.Sync.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Sync.WorkerConcurrency <= 0 {
		c.Sync.WorkerConcurrency = defaultWorkerConcurrency
	}
	if c.Sync.MaxAttempts <= 0 {
		c.Sync.MaxAttempts = defaultMaxAttempts
	}
	if c.Sync.RetryBaseDelaySeconds <= 0 {
		c.Sync.RetryBaseDelaySeconds = defaultRetryBaseDelaySeconds
	}
	if c.Sync.RetryMaxDelaySeconds <= 0 {
		c.Sync.RetryMaxDelaySeconds = defaultRetryMaxDelaySeconds
	}
	if c.Sync.ClaimLeaseSeconds <= 0 {
		c.Sync.ClaimLeaseSeconds = defaultClaimLeaseSeconds
	}
	if c.Sync.ErrorRetrySeconds <= 0 {
		c.Sync.ErrorRetrySeconds = defaultErrorRetrySeconds
	}

	if c.Cleanup.IntervalSeconds <= 0 {
		c.Cleanup.IntervalSeconds = defaultCleanupIntervalSeconds
	}

	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
