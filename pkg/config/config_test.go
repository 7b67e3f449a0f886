package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("log_level: debug\ndatabase:\n  dialect: postgres\n  dsn: postgres://x\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.Database.Dialect != "postgres" || cfg.Database.DSN != "postgres://x" {
		t.Errorf("database = %+v", cfg.Database)
	}
	// untouched field keeps its default
	if cfg.Thresholds.MatchSimilarity != 0.75 {
		t.Errorf("match similarity = %v", cfg.Thresholds.MatchSimilarity)
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Dialect != "sqlite" {
		t.Errorf("expected sqlite default, got %q", cfg.Database.Dialect)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ASSISTANT_LOG_LEVEL", "error")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("log level = %q, want error", cfg.LogLevel)
	}
}

func TestValidateRejectsBadDialect(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Dialect = "oracle"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := Defaults()
	cfg.Thresholds.MergeSimilarity = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}
