// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for planea. The override chain is
// defaults -> config file -> environment variables, with environment
// variables winning so one-off overrides never require editing the file.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Remote  RemoteConfig  `toml:"remote"`
	Sync    SyncConfig    `toml:"sync"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

// RemoteConfig controls the connection to the remote row store.
type RemoteConfig struct {
	BaseURL        string `toml:"base_url"`
	TokenFile      string `toml:"token_file"`
	UserAgent      string `toml:"user_agent"`
	RequestTimeout string `toml:"request_timeout"`
}

// SyncConfig controls the scheduling policy of the sync engine. Intervals
// are duration strings ("60s", "2m").
type SyncConfig struct {
	PullInterval string `toml:"pull_interval"`
	PushDebounce string `toml:"push_debounce"`
}

// StorageConfig controls where local state lives. DataDir holds the SQLite
// state database.
type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// EnvOverrides holds values read from the process environment. Empty string
// means "not set".
type EnvOverrides struct {
	ConfigPath string // PLANEA_CONFIG
	BaseURL    string // PLANEA_REMOTE_URL
	TokenFile  string // PLANEA_TOKEN_FILE
	DataDir    string // PLANEA_DATA_DIR
}
