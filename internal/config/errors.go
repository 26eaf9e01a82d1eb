package config

import "errors"

var (
	// ErrConfigFileNotFound indicates that the config file was not found.
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFormat indicates that the config file has invalid JSON.
	ErrInvalidConfigFormat = errors.New("invalid configuration file format")

	// ErrMissingMasterKey indicates MASTER_KEY was not set in the environment.
	ErrMissingMasterKey = errors.New("MASTER_KEY is required")

	// ErrMissingStoreURL indicates STORE_URL was not set in the environment.
	ErrMissingStoreURL = errors.New("STORE_URL is required")

	// ErrMissingStoreServiceKey indicates STORE_SERVICE_KEY was not set.
	ErrMissingStoreServiceKey = errors.New("STORE_SERVICE_KEY is required")

	// ErrInvalidRetentionDays indicates logging.retention_days is out of [1, 365].
	ErrInvalidRetentionDays = errors.New("logging.retention_days must be between 1 and 365")

	// ErrInvalidLogLevel indicates logging.level is not one of the known levels.
	ErrInvalidLogLevel = errors.New("logging.level must be one of DEBUG, INFO, WARN, ERROR")

	// ErrInvalidRetryAttempts indicates callback.retry_attempts is below 1.
	ErrInvalidRetryAttempts = errors.New("callback.retry_attempts must be >= 1")

	// ErrInvalidRetryDelay indicates callback.retry_delay_seconds is negative.
	ErrInvalidRetryDelay = errors.New("callback.retry_delay_seconds must be >= 0")
)
