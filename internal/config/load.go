package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal: silently ignoring a typo in a
// config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. This supports the zero-config
// first-run experience: users can start without creating a config file.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// EnvFromProcess reads the PLANEA_* environment variables.
func EnvFromProcess() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv("PLANEA_CONFIG"),
		BaseURL:    os.Getenv("PLANEA_REMOTE_URL"),
		TokenFile:  os.Getenv("PLANEA_TOKEN_FILE"),
		DataDir:    os.Getenv("PLANEA_DATA_DIR"),
	}
}

// Resolved is the fully validated runtime configuration with duration
// strings parsed.
type Resolved struct {
	BaseURL        string
	TokenFile      string
	UserAgent      string
	RequestTimeout time.Duration
	PullInterval   time.Duration
	PushDebounce   time.Duration
	DataDir        string
	LogLevel       string
	LogFormat      string
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> the CLI's --config
// path (configFlag, empty for the default location).
func Resolve(configFlag string, env EnvOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if configFlag != "" {
		cfgPath = configFlag
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.BaseURL != "" {
		cfg.Remote.BaseURL = env.BaseURL
	}

	if env.TokenFile != "" {
		cfg.Remote.TokenFile = env.TokenFile
	}

	if env.DataDir != "" {
		cfg.Storage.DataDir = env.DataDir
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Validated above, so the parses cannot fail.
	requestTimeout, _ := time.ParseDuration(cfg.Remote.RequestTimeout)
	pullInterval, _ := time.ParseDuration(cfg.Sync.PullInterval)
	pushDebounce, _ := time.ParseDuration(cfg.Sync.PushDebounce)

	return &Resolved{
		BaseURL:        cfg.Remote.BaseURL,
		TokenFile:      cfg.Remote.TokenFile,
		UserAgent:      cfg.Remote.UserAgent,
		RequestTimeout: requestTimeout,
		PullInterval:   pullInterval,
		PushDebounce:   pushDebounce,
		DataDir:        cfg.Storage.DataDir,
		LogLevel:       cfg.Logging.LogLevel,
		LogFormat:      cfg.Logging.LogFormat,
	}, nil
}
