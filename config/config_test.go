package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("COMMAND_PREFIX", "")
	t.Setenv("WEBHOOK_NAME", "")
	t.Setenv("DEFAULT_AVATAR_URL", "")
	t.Setenv("DB_DSN", "")
	t.Setenv("HTTP_ADDR", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.CommandPrefix != DefaultPrefix {
		t.Errorf("CommandPrefix = %q, want %q", cfg.CommandPrefix, DefaultPrefix)
	}
	if cfg.WebhookName == "" {
		t.Errorf("expected default webhook name, got empty")
	}
	if cfg.DefaultAvatarURL != DefaultAvatarURL {
		t.Errorf("DefaultAvatarURL = %q, want fallback constant", cfg.DefaultAvatarURL)
	}
	if cfg.DBDsn == "" {
		t.Errorf("expected default DSN, got empty")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COMMAND_PREFIX", "!!")
	t.Setenv("WEBHOOK_NAME", "ghostwriter")
	t.Setenv("DEFAULT_AVATAR_URL", "https://example.com/a.png")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.CommandPrefix != "!!" {
		t.Errorf("CommandPrefix = %q, want !!", cfg.CommandPrefix)
	}
	if cfg.WebhookName != "ghostwriter" {
		t.Errorf("WebhookName = %q, want ghostwriter", cfg.WebhookName)
	}
	if cfg.DefaultAvatarURL != "https://example.com/a.png" {
		t.Errorf("DefaultAvatarURL = %q", cfg.DefaultAvatarURL)
	}
}

func TestValidateBotReady(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	cfg, _ := Load()
	if err := cfg.ValidateBotReady(); err != nil {
		t.Errorf("expected valid bot config, got %v", err)
	}
	if err := os.Unsetenv("DISCORD_TOKEN"); err != nil {
		t.Fatalf("failed to unset DISCORD_TOKEN: %v", err)
	}
	cfg, _ = Load()
	if err := cfg.ValidateBotReady(); err == nil {
		t.Errorf("expected error when DISCORD_TOKEN missing")
	}
}
