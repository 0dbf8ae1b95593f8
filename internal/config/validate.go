package config

import (
	"fmt"
	"net/url"
	"time"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks every field of a Config for consistency. It returns the
// first problem found.
func Validate(cfg *Config) error {
	if cfg.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url must not be empty")
	}

	u, err := url.Parse(cfg.Remote.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote.base_url %q is not a valid URL", cfg.Remote.BaseURL)
	}

	if err := validateDuration("remote.request_timeout", cfg.Remote.RequestTimeout); err != nil {
		return err
	}

	if err := validateDuration("sync.pull_interval", cfg.Sync.PullInterval); err != nil {
		return err
	}

	if err := validateDuration("sync.push_debounce", cfg.Sync.PushDebounce); err != nil {
		return err
	}

	if cfg.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}

	if !validLogLevels[cfg.Logging.LogLevel] {
		return fmt.Errorf("logging.log_level %q is not one of debug, info, warn, error", cfg.Logging.LogLevel)
	}

	if !validLogFormats[cfg.Logging.LogFormat] {
		return fmt.Errorf("logging.log_format %q is not one of text, json", cfg.Logging.LogFormat)
	}

	return nil
}

// validateDuration checks that value parses as a positive duration string.
func validateDuration(key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s %q is not a valid duration: %w", key, value, err)
	}

	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %q", key, value)
	}

	return nil
}
