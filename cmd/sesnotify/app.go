package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/shineum/ses-notify/internal/config"
	"github.com/shineum/ses-notify/internal/delivery"
	"github.com/shineum/ses-notify/internal/deliverylog"
	"github.com/shineum/ses-notify/internal/email"
	"github.com/shineum/ses-notify/internal/provider"
	"github.com/shineum/ses-notify/internal/provider/ses"
	"github.com/shineum/ses-notify/internal/provider/stdout"
	"github.com/shineum/ses-notify/internal/sigv4"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg          *config.Config
	creds        sigv4.Credentials
	orchestrator *delivery.Orchestrator
	recorder     deliverylog.Recorder
	close        func()
}

// loadApp reads configuration and wires the delivery pipeline. Output from the
// stdout provider goes to out.
func loadApp(ctx context.Context, configPath string, out io.Writer) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup structured logging
	setupLogger(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	mode, err := delivery.ParseSendMode(cfg.SES.SendMode)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	creds, err := cfg.SigningCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve signing credentials: %w", err)
	}

	prov := selectProvider(cfg, out)

	recorder, closeFn, err := selectRecorder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("ses-notify configured",
		"provider", prov.Name(),
		"credentials", creds,
		"sender", cfg.SES.Sender,
		"send_mode", string(mode),
	)

	return &app{
		cfg:   cfg,
		creds: creds,
		orchestrator: delivery.New(creds, prov, delivery.Config{
			Sender:   cfg.SES.Sender,
			Endpoint: cfg.SES.Endpoint,
			Mode:     mode,
		}),
		recorder: recorder,
		close:    closeFn,
	}, nil
}

// record persists one log entry per outcome. Failures are logged only.
func (a *app) record(ctx context.Context, subject string, outcomes []email.Outcome) {
	for _, outcome := range outcomes {
		entry := email.NewLogEntry(uuid.NewString(), subject, outcome, time.Now())
		if err := a.recorder.Record(ctx, entry); err != nil {
			slog.Error("failed to record delivery", "recipient", outcome.Recipient, "error", err)
		}
	}
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// selectProvider chooses the transport based on configuration.
func selectProvider(cfg *config.Config, out io.Writer) provider.Provider {
	switch cfg.Provider {
	case "stdout":
		slog.Info("using stdout provider")
		return stdout.NewWithWriter(out)
	default:
		if !cfg.SESConfigured() {
			slog.Warn("SES provider selected but not fully configured; deliveries will fail",
				"region", cfg.SES.Region,
				"sender", cfg.SES.Sender,
			)
		}
		slog.Info("using AWS SES provider",
			"region", cfg.SES.Region,
			"endpoint", cfg.SES.Endpoint,
		)
		return ses.New(&http.Client{Timeout: cfg.SES.Timeout})
	}
}

// selectRecorder returns the Postgres recorder when a database is configured
// and the slog recorder otherwise.
func selectRecorder(ctx context.Context, cfg *config.Config) (deliverylog.Recorder, func(), error) {
	if cfg.Database.URL == "" {
		return deliverylog.NewLogger(slog.Default()), func() {}, nil
	}

	pool, err := deliverylog.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}

	rec := deliverylog.NewPostgres(pool)
	if err := rec.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	slog.Info("recording deliveries in postgres")
	return rec, pool.Close, nil
}
