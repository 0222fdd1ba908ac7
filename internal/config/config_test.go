package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")
	t.Setenv("SITE_USERNAME", "user")
	t.Setenv("SITE_PASSWORD", "pass")
	t.Setenv("CAMPING_DATE", "2026-04-15")
	t.Setenv("CAMPSITE_NAME", "A구역")

	// Make sure ambient values from the host environment cannot leak in.
	for _, k := range []string{"ATTENDEE_COUNT", "MAX_RETRIES", "RETRY_DELAY", "PRE_POSITION_LEAD", "HEADLESS", "SCREENSHOT_DIR", "JOURNAL_PATH", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxRetries != 10 {
		t.Fatalf("MaxRetries = %d, want default 10", cfg.MaxRetries)
	}
	if cfg.RetryDelay != time.Second {
		t.Fatalf("RetryDelay = %v, want default 1s", cfg.RetryDelay)
	}
	if cfg.PrePositionLead != 30*time.Second {
		t.Fatalf("PrePositionLead = %v, want default 30s", cfg.PrePositionLead)
	}
	if !cfg.Headless {
		t.Fatal("Headless should default to true")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for missing TELEGRAM_BOT_TOKEN")
	}
	if !strings.Contains(err.Error(), "TELEGRAM_BOT_TOKEN") {
		t.Fatalf("error %q does not name the missing variable", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_RETRIES", "3")
	t.Setenv("RETRY_DELAY", "2.5")
	t.Setenv("PRE_POSITION_LEAD", "1m")
	t.Setenv("HEADLESS", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 2500*time.Millisecond {
		t.Fatalf("RetryDelay = %v, want 2.5s", cfg.RetryDelay)
	}
	if cfg.PrePositionLead != time.Minute {
		t.Fatalf("PrePositionLead = %v, want 1m", cfg.PrePositionLead)
	}
	if cfg.Headless {
		t.Fatal("HEADLESS=false not applied")
	}
}

func TestLoadYAMLFileWithEnvPrecedence(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_RETRIES", "7")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
site_username: from-file
max_retries: 2
retry_delay: 500ms
campsite_name: B구역
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Env wins over the file.
	if cfg.SiteUsername != "user" {
		t.Fatalf("SiteUsername = %q, want env value", cfg.SiteUsername)
	}
	if cfg.MaxRetries != 7 {
		t.Fatalf("MaxRetries = %d, want env value 7", cfg.MaxRetries)
	}
	if cfg.CampsiteName != "A구역" {
		t.Fatalf("CampsiteName = %q, want env value", cfg.CampsiteName)
	}
	// File wins over defaults.
	if cfg.RetryDelay != 500*time.Millisecond {
		t.Fatalf("RetryDelay = %v, want file value 500ms", cfg.RetryDelay)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad date", mutate: func(c *Config) { c.CampingDate = "15-04-2026" }},
		{name: "zero retries", mutate: func(c *Config) { c.MaxRetries = 0 }},
		{name: "negative delay", mutate: func(c *Config) { c.RetryDelay = -time.Second }},
		{name: "negative lead", mutate: func(c *Config) { c.PrePositionLead = -time.Second }},
		{name: "zero attendees", mutate: func(c *Config) { c.AttendeeCount = 0 }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.TelegramToken = "t"
			cfg.TelegramChatID = 1
			cfg.SiteUsername = "u"
			cfg.SitePassword = "p"
			cfg.CampingDate = "2026-04-15"
			cfg.CampsiteName = "A구역"
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
