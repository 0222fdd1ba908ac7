// Package config loads and validates the run configuration. Settings come
// from an optional YAML file with environment variables taking precedence,
// so a bare env-only deployment (container, systemd unit) needs no file at
// all. Validation happens once at load time; nothing else in the program
// checks config values again.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

type Config struct {
	// Telegram delivery target for run reports.
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`

	// Library site credentials.
	SiteUsername string `yaml:"site_username"`
	SitePassword string `yaml:"site_password"`

	// What to book.
	CampingDate   string `yaml:"camping_date"`  // YYYY-MM-DD
	CampsiteName  string `yaml:"campsite_name"` // dropdown label, e.g. "A구역"
	AttendeeCount int    `yaml:"attendee_count"`

	// Retry / timing knobs.
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"-"`
	PrePositionLead time.Duration `yaml:"-"`

	// Raw duration strings from YAML; parsed into the fields above.
	RetryDelayRaw      string `yaml:"retry_delay"`
	PrePositionLeadRaw string `yaml:"pre_position_lead"`

	Headless      bool   `yaml:"headless"`
	ScreenshotDir string `yaml:"screenshot_dir"`
	JournalPath   string `yaml:"journal_path"`
	LogLevel      string `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		AttendeeCount:   2,
		MaxRetries:      10,
		RetryDelay:      time.Second,
		PrePositionLead: 30 * time.Second,
		Headless:        true,
		ScreenshotDir:   "./screenshots",
		JournalPath:     "./campsniper.db",
		LogLevel:        "info",
	}
}

// Load reads the YAML file at path (if non-empty), applies env overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if cfg.RetryDelayRaw != "" {
			d, err := parseDuration("retry_delay", cfg.RetryDelayRaw)
			if err != nil {
				return Config{}, err
			}
			cfg.RetryDelay = d
		}
		if cfg.PrePositionLeadRaw != "" {
			d, err := parseDuration("pre_position_lead", cfg.PrePositionLeadRaw)
			if err != nil {
				return Config{}, err
			}
			cfg.PrePositionLead = d
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setStr(&c.TelegramToken, "TELEGRAM_BOT_TOKEN")
	setStr(&c.SiteUsername, "SITE_USERNAME")
	setStr(&c.SitePassword, "SITE_PASSWORD")
	setStr(&c.CampingDate, "CAMPING_DATE")
	setStr(&c.CampsiteName, "CAMPSITE_NAME")
	setStr(&c.ScreenshotDir, "SCREENSHOT_DIR")
	setStr(&c.JournalPath, "JOURNAL_PATH")
	setStr(&c.LogLevel, "LOG_LEVEL")

	if v := getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.TelegramChatID = id
	}
	if v := getenv("ATTENDEE_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ATTENDEE_COUNT: %w", err)
		}
		c.AttendeeCount = n
	}
	if v := getenv("MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_RETRIES: %w", err)
		}
		c.MaxRetries = n
	}
	if v := getenv("RETRY_DELAY"); v != "" {
		d, err := parseDuration("RETRY_DELAY", v)
		if err != nil {
			return err
		}
		c.RetryDelay = d
	}
	if v := getenv("PRE_POSITION_LEAD"); v != "" {
		d, err := parseDuration("PRE_POSITION_LEAD", v)
		if err != nil {
			return err
		}
		c.PrePositionLead = d
	}
	if v := getenv("HEADLESS"); v != "" {
		c.Headless = strings.EqualFold(v, "true") || v == "1"
	}
	return nil
}

// Validate checks every invariant the rest of the program relies on.
func (c Config) Validate() error {
	var missing []string
	if c.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.TelegramChatID == 0 {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if c.SiteUsername == "" {
		missing = append(missing, "SITE_USERNAME")
	}
	if c.SitePassword == "" {
		missing = append(missing, "SITE_PASSWORD")
	}
	if c.CampingDate == "" {
		missing = append(missing, "CAMPING_DATE")
	}
	if c.CampsiteName == "" {
		missing = append(missing, "CAMPSITE_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	if _, err := time.Parse("2006-01-02", c.CampingDate); err != nil {
		return fmt.Errorf("camping_date must be YYYY-MM-DD: %w", err)
	}
	if c.AttendeeCount < 1 {
		return fmt.Errorf("attendee_count must be >= 1")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be >= 1")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be >= 0")
	}
	if c.PrePositionLead < 0 {
		return fmt.Errorf("pre_position_lead must be >= 0")
	}
	return nil
}

func parseDuration(field, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	// Accept bare numbers as seconds for compatibility with env files that
	// predate duration syntax.
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	return d, nil
}

func getenv(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func setStr(dst *string, key string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}
