package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Inference.Endpoint != "http://localhost:8000" {
		t.Errorf("unexpected default endpoint: %s", cfg.Inference.Endpoint)
	}
	if cfg.Auth.SessionExpiryDays != 7 {
		t.Errorf("unexpected session expiry: %d", cfg.Auth.SessionExpiryDays)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("unexpected log level: %s", cfg.Logging.Level)
	}

	// Default file should have been written
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config file not created: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"inference": {"endpoint": "http://inference.internal:9000"},
		"logging": {"level": "debug"}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Inference.Endpoint != "http://inference.internal:9000" {
		t.Errorf("endpoint not read from file: %s", cfg.Inference.Endpoint)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level not read from file: %s", cfg.Logging.Level)
	}
	// Missing fields fall back to defaults
	if cfg.Inference.TimeoutSeconds != 60 {
		t.Errorf("timeout default not applied: %d", cfg.Inference.TimeoutSeconds)
	}
	if cfg.Storage.DBPath != "foundrscan.db" {
		t.Errorf("db path default not applied: %s", cfg.Storage.DBPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("FOUNDRSCAN_INFERENCE_ENDPOINT", "http://override:8123")
	t.Setenv("FOUNDRSCAN_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Inference.Endpoint != "http://override:8123" {
		t.Errorf("env override not applied: %s", cfg.Inference.Endpoint)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env override not applied: %s", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadEndpoint(t *testing.T) {
	cfg := Defaults()
	cfg.Inference.Endpoint = "localhost:8000"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for non-http endpoint")
	}

	cfg = Defaults()
	cfg.Inference.TimeoutSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero timeout")
	}
}
