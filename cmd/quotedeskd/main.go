package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	apiPkg "github.com/quotedesk-io/quotedesk/internal/api"
	"github.com/quotedesk-io/quotedesk/internal/config"
	"github.com/quotedesk-io/quotedesk/internal/engine"
	"github.com/quotedesk-io/quotedesk/internal/extractor"
	"github.com/quotedesk-io/quotedesk/internal/logbuf"
	"github.com/quotedesk-io/quotedesk/internal/mailer"
	"github.com/quotedesk-io/quotedesk/internal/notify"
	"github.com/quotedesk-io/quotedesk/internal/ticket"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("quotedeskd starting", "env", cfg.Env)

	// Ticket store
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data dir", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	dbPath := cfg.DataDir + "/quotedesk.db"
	store, err := ticket.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Error("failed to open ticket store", "path", dbPath, "error", err)
		os.Exit(1)
	}

	// Extraction model: one client serves both field extraction and
	// follow-up composition.
	var anthOpts []extractor.AnthropicOption
	if cfg.Anthropic.BaseURL != "" {
		anthOpts = append(anthOpts, extractor.WithAnthropicBaseURL(cfg.Anthropic.BaseURL))
	}
	if cfg.Anthropic.Model != "" {
		anthOpts = append(anthOpts, extractor.WithAnthropicModel(cfg.Anthropic.Model))
	}
	llm := extractor.NewAnthropic(cfg.Anthropic.APIKey, anthOpts...)

	// Outbound email: real delivery in production, recorded outbox locally.
	var outMail mailer.Mailer
	if cfg.IsProduction() {
		outMail = mailer.NewResend(cfg.Resend.APIKey, cfg.Resend.FromEmail)
		logger.Info("resend mailer configured", "from", cfg.Resend.FromEmail)
	} else {
		outMail = mailer.NewMock(store, cfg.Resend.FromEmail)
		logger.Info("mock mailer configured, outbound email recorded only")
	}

	engOpts := []engine.Option{
		engine.WithMatchWindow(time.Duration(cfg.MatchWindowDays) * 24 * time.Hour),
	}
	if cfg.Slack != nil {
		notifier, err := notify.NewSlack(cfg.Slack.Token, cfg.Slack.Channel, logger.With("component", "slack"))
		if err != nil {
			logger.Error("failed to init slack notifier", "error", err)
			os.Exit(1)
		}
		engOpts = append(engOpts, engine.WithNotifier(notifier))
		logger.Info("slack notifier configured", "channel", cfg.Slack.Channel)
	}

	eng := engine.New(store, llm, llm, outMail, logger.With("component", "engine"), engOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reminder sweep for tickets stuck waiting on the customer.
	idle := time.Duration(cfg.Reminders.IdleHours) * time.Hour
	sched := cron.New()
	_, err = sched.AddFunc(cfg.Reminders.Schedule, func() {
		if _, err := eng.SweepReminders(ctx, idle); err != nil {
			logger.Error("reminder sweep failed", "error", err)
		}
	})
	if err != nil {
		logger.Error("invalid reminder schedule", "schedule", cfg.Reminders.Schedule, "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()
	logger.Info("reminder scheduler started", "schedule", cfg.Reminders.Schedule, "idle", idle.String())

	apiSrv := apiPkg.NewServer(eng, apiPkg.Config{
		Host:          cfg.API.Host,
		Port:          cfg.API.Port,
		Key:           cfg.API.Key,
		Dev:           !cfg.IsProduction(),
		WebhookSecret: cfg.Resend.WebhookSecret,
	}, logger.With("component", "api"), logBuf)

	go safeGo(logger, "api-server", func() { apiSrv.Start(ctx) })
	logger.Info("api server started", "port", cfg.API.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	logger.Info("quotedeskd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
