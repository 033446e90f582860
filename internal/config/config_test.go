package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimal = `
bot:
  token: "bot-token"
database:
  url: "postgres://localhost/helper"
security:
  encryption_key: "secret"
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bot.Workers != 8 || cfg.Bot.Mode != "polling" || cfg.Bot.Timeout != 60 {
		t.Errorf("unexpected bot defaults: %+v", cfg.Bot)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.GitHub.Timeout != 10*time.Second || cfg.GitHub.PerPage != 100 {
		t.Errorf("unexpected github defaults: %+v", cfg.GitHub)
	}
	if cfg.Flow.SessionTTL != 15*time.Minute || cfg.Flow.SweepInterval != time.Minute {
		t.Errorf("unexpected flow defaults: %+v", cfg.Flow)
	}
	if cfg.Redis.TTL != time.Hour {
		t.Errorf("unexpected redis ttl: %v", cfg.Redis.TTL)
	}
}

func TestParse_Durations(t *testing.T) {
	cfg, err := Parse([]byte(minimal + `
github:
  timeout: 3s
  per_page: 500
flow:
  session_ttl: 2m
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GitHub.Timeout != 3*time.Second {
		t.Errorf("expected 3s, got %v", cfg.GitHub.Timeout)
	}
	if cfg.GitHub.PerPage != 100 {
		t.Errorf("per_page should be capped to 100, got %d", cfg.GitHub.PerPage)
	}
	if cfg.Flow.SessionTTL != 2*time.Minute {
		t.Errorf("expected 2m, got %v", cfg.Flow.SessionTTL)
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing token", "database:\n  url: x\nsecurity:\n  encryption_key: k\n", "bot.token"},
		{"missing db", "bot:\n  token: t\nsecurity:\n  encryption_key: k\n", "database.url"},
		{"missing key", "bot:\n  token: t\ndatabase:\n  url: x\n", "encryption_key"},
		{"webhook mode", "bot:\n  token: t\n  mode: webhook\ndatabase:\n  url: x\nsecurity:\n  encryption_key: k\n", "not supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "env-token")
	t.Setenv("ENCRYPTION_KEY", "env-key")
	cfg, err := Parse([]byte("database:\n  url: x\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bot.Token != "env-token" || cfg.Security.EncryptionKey != "env-key" {
		t.Fatalf("env overrides not applied: %+v / %+v", cfg.Bot, cfg.Security)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(minimal), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Runtime.Dev {
		t.Error("expected dev runtime flag")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), false); err == nil {
		t.Error("expected error for missing file")
	}
}
