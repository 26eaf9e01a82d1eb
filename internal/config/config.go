// Package config loads gateway configuration from environment variables and
// an optional config.json, applying defaults first and environment
// overrides last.
package config

import "time"

// Config holds all configuration for the gateway.
type Config struct {
	MasterKeyB64    string `json:"-"`
	StoreURL        string `json:"-"`
	StoreServiceKey string `json:"-"`

	Logging  LoggingConfig  `json:"logging"`
	API      APIConfig      `json:"api"`
	Callback CallbackConfig `json:"callback"`
}

// LoggingConfig controls structured log verbosity, destination, and retention.
type LoggingConfig struct {
	Level         string `json:"level"`
	RetentionDays int    `json:"retention_days"`
	LogDirectory  string `json:"log_directory"`
}

// APIConfig carries metadata surfaced on the health endpoint and the
// development-mode flag that relaxes SSRF origin checks (never signature
// checks — see internal/registration).
type APIConfig struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Version          string `json:"version"`
	DevelopmentMode  bool   `json:"development_mode"`
}

// CallbackConfig controls the registration coordinator's callback-retry policy.
type CallbackConfig struct {
	RetryAttempts      int `json:"retry_attempts"`
	RetryDelaySeconds  int `json:"retry_delay_seconds"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:         "INFO",
			RetentionDays: 30,
			LogDirectory:  "./logs",
		},
		API: APIConfig{
			Title:           "EagleChat Gateway",
			Description:     "Multi-tenant credential and trust gateway for EagleChat sites",
			Version:         "1.0",
			DevelopmentMode: false,
		},
		Callback: CallbackConfig{
			RetryAttempts:     3,
			RetryDelaySeconds: 3,
		},
	}
}

// RetryDelay returns the configured callback retry delay as a time.Duration.
func (c CallbackConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}
