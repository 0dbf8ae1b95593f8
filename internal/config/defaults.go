package config

import "path/filepath"

// Default values applied before the config file is read.
const (
	defaultBaseURL        = "https://api.planea.app"
	defaultUserAgent      = "planea-go/1.0"
	defaultRequestTimeout = "30s"
	defaultPullInterval   = "60s"
	defaultPushDebounce   = "2s"
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
)

// DefaultConfig returns a Config populated with every default value. Loading
// decodes the file on top of this, so absent keys keep their defaults.
func DefaultConfig() *Config {
	dataDir := DefaultDataDir()

	return &Config{
		Remote: RemoteConfig{
			BaseURL:        defaultBaseURL,
			TokenFile:      filepath.Join(dataDir, "token"),
			UserAgent:      defaultUserAgent,
			RequestTimeout: defaultRequestTimeout,
		},
		Sync: SyncConfig{
			PullInterval: defaultPullInterval,
			PushDebounce: defaultPushDebounce,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
