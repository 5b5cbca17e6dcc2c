// Package config loads daemon configuration from a JSON file or from
// QD_-prefixed environment variables, with optional .env loading for
// local development.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the top-level quotedesk configuration.
type Config struct {
	// Env selects the runtime mode: "local" or "production". Local mode
	// records outbound email in the dev outbox instead of sending it and
	// exposes the /api/dev endpoints.
	Env     string `json:"env"`
	DataDir string `json:"data_dir"`

	API       APIConfig       `json:"api"`
	Anthropic AnthropicConfig `json:"anthropic"`
	Resend    ResendConfig    `json:"resend"`
	Slack     *SlackConfig    `json:"slack,omitempty"`
	Reminders RemindersConfig `json:"reminders"`

	// MatchWindowDays bounds sender-based conversation matching.
	MatchWindowDays int `json:"match_window_days"`
}

// APIConfig holds REST API server settings.
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Key  string `json:"api_key"`
}

// AnthropicConfig holds extraction model settings.
type AnthropicConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
}

// ResendConfig holds outbound email settings.
type ResendConfig struct {
	APIKey        string `json:"api_key"`
	FromEmail     string `json:"from_email"`
	WebhookSecret string `json:"webhook_secret"`
}

// SlackConfig holds READY-ticket notification settings.
type SlackConfig struct {
	Token   string `json:"token"`
	Channel string `json:"channel"`
}

// RemindersConfig controls the idle-ticket follow-up sweep.
type RemindersConfig struct {
	Schedule  string `json:"schedule"`   // cron expression
	IdleHours int    `json:"idle_hours"` // nag after this much silence
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv builds configuration from QD_-prefixed environment
// variables. A .env file in the working directory is applied first when
// present.
func LoadFromEnv() (*Config, error) {
	// Best effort: absence of .env is the normal production case.
	_ = godotenv.Load(".env")

	cfg := defaults()
	cfg.Env = getenv("QD_ENV", cfg.Env)
	cfg.DataDir = getenv("QD_DATA_DIR", cfg.DataDir)

	cfg.API.Host = getenv("QD_API_HOST", cfg.API.Host)
	cfg.API.Port = getenvInt("QD_API_PORT", cfg.API.Port)
	cfg.API.Key = os.Getenv("QD_API_KEY")

	cfg.Anthropic.APIKey = os.Getenv("QD_ANTHROPIC_API_KEY")
	cfg.Anthropic.BaseURL = os.Getenv("QD_ANTHROPIC_BASE_URL")
	cfg.Anthropic.Model = os.Getenv("QD_ANTHROPIC_MODEL")

	cfg.Resend.APIKey = os.Getenv("QD_RESEND_API_KEY")
	cfg.Resend.FromEmail = getenv("QD_RESEND_FROM_EMAIL", cfg.Resend.FromEmail)
	cfg.Resend.WebhookSecret = os.Getenv("QD_RESEND_WEBHOOK_SECRET")

	if token := os.Getenv("QD_SLACK_TOKEN"); token != "" {
		cfg.Slack = &SlackConfig{
			Token:   token,
			Channel: getenv("QD_SLACK_CHANNEL", "#sales"),
		}
	}

	cfg.Reminders.Schedule = getenv("QD_REMINDER_SCHEDULE", cfg.Reminders.Schedule)
	cfg.Reminders.IdleHours = getenvInt("QD_REMINDER_IDLE_HOURS", cfg.Reminders.IdleHours)
	cfg.MatchWindowDays = getenvInt("QD_MATCH_WINDOW_DAYS", cfg.MatchWindowDays)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Env:     "local",
		DataDir: "/data",
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Resend: ResendConfig{
			FromEmail: "sales@localhost.dev",
		},
		Reminders: RemindersConfig{
			Schedule:  "0 * * * *",
			IdleHours: 24,
		},
		MatchWindowDays: 7,
	}
}

// IsProduction reports whether real email delivery and webhook signature
// checks are in effect.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks required fields, collecting every problem.
func (c *Config) Validate() error {
	var errs []string

	if c.Env != "local" && c.Env != "production" {
		errs = append(errs, fmt.Sprintf("env must be local or production, got %q", c.Env))
	}
	if c.DataDir == "" {
		errs = append(errs, "data_dir is required")
	}
	if c.Anthropic.APIKey == "" {
		errs = append(errs, "anthropic.api_key is required")
	}
	if c.IsProduction() {
		if c.Resend.APIKey == "" {
			errs = append(errs, "resend.api_key is required in production")
		}
		if c.Resend.WebhookSecret == "" {
			errs = append(errs, "resend.webhook_secret is required in production")
		}
	}
	if c.Resend.FromEmail == "" {
		errs = append(errs, "resend.from_email is required")
	}
	if c.Slack != nil {
		if c.Slack.Token == "" {
			errs = append(errs, "slack.token is required")
		}
		if c.Slack.Channel == "" {
			errs = append(errs, "slack.channel is required")
		}
	}
	if c.Reminders.Schedule == "" {
		errs = append(errs, "reminders.schedule is required")
	}
	if c.Reminders.IdleHours <= 0 {
		errs = append(errs, "reminders.idle_hours must be positive")
	}
	if c.MatchWindowDays <= 0 {
		errs = append(errs, "match_window_days must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
