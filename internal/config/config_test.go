package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validJSON = `{
  "env": "production",
  "data_dir": "/tmp/quotedesk-test",
  "api": {
    "host": "0.0.0.0",
    "port": 9090,
    "api_key": "dashboard-key"
  },
  "anthropic": {
    "api_key": "sk-ant-test",
    "model": "claude-sonnet-4-20250514"
  },
  "resend": {
    "api_key": "re_test",
    "from_email": "sales@quotedesk.example",
    "webhook_secret": "whsec_test"
  },
  "slack": {
    "token": "xoxb-test",
    "channel": "#sales"
  },
  "reminders": {
    "schedule": "30 * * * *",
    "idle_hours": 48
  },
  "match_window_days": 7
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.IsProduction() {
		t.Error("expected production mode")
	}
	if cfg.API.Port != 9090 || cfg.API.Key != "dashboard-key" {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Resend.FromEmail != "sales@quotedesk.example" {
		t.Errorf("from = %q", cfg.Resend.FromEmail)
	}
	if cfg.Slack == nil || cfg.Slack.Channel != "#sales" {
		t.Errorf("slack = %+v", cfg.Slack)
	}
	if cfg.Reminders.IdleHours != 48 {
		t.Errorf("idle_hours = %d", cfg.Reminders.IdleHours)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"anthropic":{"api_key":"sk-ant"}}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "local" || cfg.IsProduction() {
		t.Errorf("env = %q", cfg.Env)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("port = %d", cfg.API.Port)
	}
	if cfg.Reminders.Schedule == "" || cfg.Reminders.IdleHours != 24 {
		t.Errorf("reminders = %+v", cfg.Reminders)
	}
	if cfg.MatchWindowDays != 7 {
		t.Errorf("match window = %d", cfg.MatchWindowDays)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	_, err := Load(writeConfig(t, `{
	  "env": "production",
	  "data_dir": "",
	  "resend": {"from_email": "sales@x.com"}
	}`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{
		"data_dir is required",
		"anthropic.api_key is required",
		"resend.api_key is required in production",
		"resend.webhook_secret is required in production",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q:\n%s", want, msg)
		}
	}
}

func TestLocalModeSkipsResendChecks(t *testing.T) {
	if _, err := Load(writeConfig(t, `{"anthropic":{"api_key":"sk-ant"}}`)); err != nil {
		t.Fatalf("local mode should not require resend credentials: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("QD_ENV", "production")
	t.Setenv("QD_DATA_DIR", "/var/lib/quotedesk")
	t.Setenv("QD_API_PORT", "7070")
	t.Setenv("QD_ANTHROPIC_API_KEY", "sk-ant-env")
	t.Setenv("QD_RESEND_API_KEY", "re_env")
	t.Setenv("QD_RESEND_FROM_EMAIL", "quotes@env.example")
	t.Setenv("QD_RESEND_WEBHOOK_SECRET", "whsec_env")
	t.Setenv("QD_SLACK_TOKEN", "xoxb-env")
	t.Setenv("QD_REMINDER_IDLE_HOURS", "12")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.API.Port != 7070 {
		t.Errorf("port = %d", cfg.API.Port)
	}
	if cfg.Anthropic.APIKey != "sk-ant-env" {
		t.Errorf("anthropic key = %q", cfg.Anthropic.APIKey)
	}
	if cfg.Slack == nil || cfg.Slack.Token != "xoxb-env" {
		t.Errorf("slack = %+v", cfg.Slack)
	}
	if cfg.Slack.Channel != "#sales" {
		t.Errorf("default channel = %q", cfg.Slack.Channel)
	}
	if cfg.Reminders.IdleHours != 12 {
		t.Errorf("idle_hours = %d", cfg.Reminders.IdleHours)
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	t.Setenv("QD_ENV", "staging")
	t.Setenv("QD_ANTHROPIC_API_KEY", "sk-ant")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for unknown env")
	}
}
