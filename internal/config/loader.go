package config

import (
	"encoding/json"
	"fmt"
	"os"
)

var validLogLevels = map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true}

// Load loads configuration from a JSON file path (may be empty) and applies
// environment variable overrides. Validation is deferred to the caller so
// tests can construct partial configs without tripping it.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		fileCfg, err := loadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg.Logging = fileCfg.Logging
		cfg.API = fileCfg.API
		cfg.Callback = fileCfg.Callback
	}

	applyEnvironmentOverrides(cfg)

	return cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfigFormat, err)
	}

	return cfg, nil
}

func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("MASTER_KEY"); v != "" {
		cfg.MasterKeyB64 = v
	}
	if v := os.Getenv("STORE_URL"); v != "" {
		cfg.StoreURL = v
	}
	if v := os.Getenv("STORE_SERVICE_KEY"); v != "" {
		cfg.StoreServiceKey = v
	}
}

// Validate checks required fields and invariants. Call after environment
// overrides (and any CLI overrides) have been applied.
func (c *Config) Validate() error {
	if c.MasterKeyB64 == "" {
		return ErrMissingMasterKey
	}
	if c.StoreURL == "" {
		return ErrMissingStoreURL
	}
	if c.StoreServiceKey == "" {
		return ErrMissingStoreServiceKey
	}
	if !validLogLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}
	if c.Logging.RetentionDays < 1 || c.Logging.RetentionDays > 365 {
		return ErrInvalidRetentionDays
	}
	if c.Callback.RetryAttempts < 1 {
		return ErrInvalidRetryAttempts
	}
	if c.Callback.RetryDelaySeconds < 0 {
		return ErrInvalidRetryDelay
	}
	return nil
}
