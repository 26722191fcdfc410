package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRegistry(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateRegistry() error {
	parsed, err := url.Parse(c.Registry.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("registry.base_url is not a valid URL: %q", c.Registry.BaseURL)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.BatchSize > 1000 {
		return errors.New("sync.batch_size must be at most 1000")
	}
	if c.Sync.RetryMaxDelaySeconds < c.Sync.RetryBaseDelaySeconds {
		return errors.New("sync.retry_max_delay_seconds must be at least retry_base_delay_seconds")
	}
	if c.Sync.ClaimLeaseSeconds < c.Sync.PollIntervalSeconds {
		return errors.New("sync.claim_lease_seconds must be at least poll_interval_seconds")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
