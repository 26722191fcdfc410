package config

const (
	defaultDataDir                = "~/.local/share/orgsync"
	defaultLogDir                 = "~/.local/share/orgsync/logs"
	defaultRegistryBaseURL        = "https://estruturaorganizacional.dados.gov.br/doc"
	defaultRegistryTimeoutSeconds = 30
	defaultBatchSize              = 25
	defaultPollIntervalSeconds    = 10
	defaultWorkerConcurrency      = 4
	defaultMaxAttempts            = 3
	defaultRetryBaseDelaySeconds  = 30
	defaultRetryMaxDelaySeconds   = 1800
	defaultClaimLeaseSeconds      = 300
	defaultErrorRetrySeconds      = 15
	defaultCleanupIntervalSeconds = 3600
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Registry: Registry{
			BaseURL:        defaultRegistryBaseURL,
			TimeoutSeconds: defaultRegistryTimeoutSeconds,
		},
		Sync: Sync{
			BatchSize:             defaultBatchSize,
			PollIntervalSeconds:   defaultPollIntervalSeconds,
			WorkerConcurrency:     defaultWorkerConcurrency,
			MaxAttempts:           defaultMaxAttempts,
			RetryBaseDelaySeconds: defaultRetryBaseDelaySeconds,
			RetryMaxDelaySeconds:  defaultRetryMaxDelaySeconds,
			ClaimLeaseSeconds:     defaultClaimLeaseSeconds,
			ErrorRetrySeconds:     defaultErrorRetrySeconds,
		},
		Cleanup: Cleanup{
			Enabled:         true,
			IntervalSeconds: defaultCleanupIntervalSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
