package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.IncludeTests {
		t.Errorf("expected includeTests default true")
	}
	if !cfg.IncludeTypeOnlyImports {
		t.Errorf("expected includeTypeOnlyImports default true")
	}
	if cfg.LargeRepoThreshold != 100 {
		t.Errorf("expected largeRepoThreshold 100, got %d", cfg.LargeRepoThreshold)
	}
	if cfg.MaxRepoSizeBytes != 200*1024*1024 {
		t.Errorf("expected maxRepoSizeBytes 200 MiB, got %d", cfg.MaxRepoSizeBytes)
	}
	if cfg.CloneDepth != 1 {
		t.Errorf("expected cloneDepth 1, got %d", cfg.CloneDepth)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LargeRepoThreshold != 100 {
		t.Errorf("expected defaults when config file is absent")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := "largeRepoThreshold: 250\ncloneDepth: 2\nlogging:\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(dir, "macaroni.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LargeRepoThreshold != 250 {
		t.Errorf("expected largeRepoThreshold 250, got %d", cfg.LargeRepoThreshold)
	}
	if cfg.CloneDepth != 2 {
		t.Errorf("expected cloneDepth 2, got %d", cfg.CloneDepth)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level debug, got %s", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}

	cfg.CloneDepth = 0
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected validation error for cloneDepth 0")
	}
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	content := "exclude_dirs = [\"generated\", \"third_party\"]\ninclude_tests = false\n"
	if err := os.WriteFile(filepath.Join(dir, OverrideFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	ov, err := LoadOverride(dir)
	if err != nil {
		t.Fatalf("LoadOverride() error: %v", err)
	}
	if ov == nil {
		t.Fatal("expected override, got nil")
	}

	cfg := Default()
	extra := cfg.Apply(ov)
	if cfg.IncludeTests {
		t.Errorf("expected include_tests override to apply")
	}
	if len(extra) != 2 || extra[0] != "generated" {
		t.Errorf("expected extra exclude dirs, got %v", extra)
	}
}

func TestLoadOverrideMissing(t *testing.T) {
	ov, err := LoadOverride(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOverride() error: %v", err)
	}
	if ov != nil {
		t.Errorf("expected nil override for missing file")
	}
}
