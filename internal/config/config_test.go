package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.SyncInterval != 2*time.Minute {
		t.Errorf("expected default interval 2m, got %s", cfg.SyncInterval)
	}
	if cfg.CooldownDuration != 3*time.Hour {
		t.Errorf("expected default cooldown 3h, got %s", cfg.CooldownDuration)
	}
	if cfg.RetryAttempts != 3 {
		t.Errorf("expected 3 retry attempts, got %d", cfg.RetryAttempts)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
sync:
  interval: 5m
  cooldown: 1h
monzo:
  access_token: file-token
accounts:
  - id: amex-main
    provider: amex
    pot_id: pot-1
    override_enabled: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SYNC_INTERVAL", "90s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SyncInterval != 90*time.Second {
		t.Errorf("env must override file: got %s", cfg.SyncInterval)
	}
	if cfg.CooldownDuration != time.Hour {
		t.Errorf("expected cooldown 1h from file, got %s", cfg.CooldownDuration)
	}
	if len(cfg.Accounts) != 1 || cfg.Accounts[0].ID != "amex-main" || !cfg.Accounts[0].OverrideEnabled {
		t.Errorf("accounts not parsed: %+v", cfg.Accounts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("sync:\n  interval: often\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestValidate_RequiresToken(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure without monzo token")
	}
	cfg.MonzoAccessToken = "token"
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}
