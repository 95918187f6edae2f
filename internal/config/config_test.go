package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Model.Backend != "cloud" {
		t.Errorf("Model.Backend = %q, want cloud", cfg.Model.Backend)
	}
	if cfg.Budget.ContextWindowTokens != 32000 {
		t.Errorf("Budget.ContextWindowTokens = %d, want 32000", cfg.Budget.ContextWindowTokens)
	}
	if cfg.Loop.MaxWallTime != 5*time.Minute {
		t.Errorf("Loop.MaxWallTime = %v, want 5m", cfg.Loop.MaxWallTime)
	}
	if cfg.Loop.MaxNudges != 3 {
		t.Errorf("Loop.MaxNudges = %d, want 3", cfg.Loop.MaxNudges)
	}
	if cfg.Safety.MaxDomainAttempts != 3 {
		t.Errorf("Safety.MaxDomainAttempts = %d, want 3", cfg.Safety.MaxDomainAttempts)
	}
}

func TestLoad_FillsDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("model:\n  cloud_model: gpt-4o\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.CloudModel != "gpt-4o" {
		t.Errorf("Model.CloudModel = %q, want gpt-4o", cfg.Model.CloudModel)
	}
	if cfg.Model.Backend != "cloud" {
		t.Errorf("Model.Backend = %q, want the default cloud (unset in file)", cfg.Model.Backend)
	}
	if cfg.Budget.ContextWindowTokens != 32000 {
		t.Errorf("Budget.ContextWindowTokens = %d, want the default 32000", cfg.Budget.ContextWindowTokens)
	}
}

func TestLoad_OverridesDefaultsExplicitly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "safety:\n  workspace: /tmp/workspace\n  max_domain_attempts: 7\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Safety.Workspace != "/tmp/workspace" {
		t.Errorf("Safety.Workspace = %q", cfg.Safety.Workspace)
	}
	if cfg.Safety.MaxDomainAttempts != 7 {
		t.Errorf("Safety.MaxDomainAttempts = %d, want 7", cfg.Safety.MaxDomainAttempts)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Fatalf("expected an error loading a missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: [["), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error loading invalid YAML")
	}
}
