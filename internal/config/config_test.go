package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() should validate: %v", err)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an invalid log level to fail validation")
	}
}

func TestLoadFileAppliesYamlAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corelink.yaml")
	yaml := "transport:\n  url: udp:127.0.0.1:14550\n  baud: 115200\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CORELINK_LOG_LEVEL", "warn")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Transport.URL != "udp:127.0.0.1:14550" {
		t.Errorf("Transport.URL = %q", cfg.Transport.URL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected env override to win, got Level = %q", cfg.Logging.Level)
	}
}

func TestLoadFileRejectsMissingFile(t *testing.T) {
	if _, err := LoadFile("/nonexistent/corelink.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
