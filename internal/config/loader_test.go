package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MASTER_KEY", "STORE_URL", "STORE_SERVICE_KEY"} {
		os.Unsetenv(key)
	}
}

func TestLoad_DefaultsAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	os.Setenv("MASTER_KEY", "dGVzdC1tYXN0ZXIta2V5")
	os.Setenv("STORE_URL", "postgres://localhost/eaglechat")
	os.Setenv("STORE_SERVICE_KEY", "svc-key")
	t.Cleanup(func() { clearEnv(t) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected default log level INFO, got %s", cfg.Logging.Level)
	}
	if cfg.Callback.RetryAttempts != 3 {
		t.Errorf("expected default retry attempts 3, got %d", cfg.Callback.RetryAttempts)
	}
	if cfg.MasterKeyB64 != "dGVzdC1tYXN0ZXIta2V5" {
		t.Errorf("expected MASTER_KEY applied, got %s", cfg.MasterKeyB64)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	os.Setenv("MASTER_KEY", "dGVzdC1tYXN0ZXIta2V5")
	os.Setenv("STORE_URL", "postgres://localhost/eaglechat")
	os.Setenv("STORE_SERVICE_KEY", "svc-key")
	t.Cleanup(func() { clearEnv(t) })

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"logging": {"level": "DEBUG", "retention_days": 7, "log_directory": "/var/log/eaglechat"},
		"api": {"title": "Test Gateway", "development_mode": true},
		"callback": {"retry_attempts": 5, "retry_delay_seconds": 1}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "DEBUG" || cfg.Logging.RetentionDays != 7 {
		t.Errorf("file values not applied: %+v", cfg.Logging)
	}
	if !cfg.API.DevelopmentMode {
		t.Error("expected development_mode=true from file")
	}
	if cfg.Callback.RetryAttempts != 5 {
		t.Errorf("expected retry_attempts=5, got %d", cfg.Callback.RetryAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.json")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate_RejectsMissingRequired(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != ErrMissingMasterKey {
		t.Errorf("expected ErrMissingMasterKey, got %v", err)
	}
}

func TestValidate_RejectsBadRetentionDays(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MasterKeyB64 = "k"
	cfg.StoreURL = "u"
	cfg.StoreServiceKey = "s"
	cfg.Logging.RetentionDays = 400
	if err := cfg.Validate(); err != ErrInvalidRetentionDays {
		t.Errorf("expected ErrInvalidRetentionDays, got %v", err)
	}
}
