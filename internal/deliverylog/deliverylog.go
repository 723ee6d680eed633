// Package deliverylog persists one record per delivery outcome.
package deliverylog

import (
	"context"
	"log/slog"

	"github.com/shineum/ses-notify/internal/email"
)

// Recorder stores delivery log entries.
type Recorder interface {
	Record(ctx context.Context, entry email.LogEntry) error
}

// Logger records entries as structured log lines.
type Logger struct {
	log *slog.Logger
}

// NewLogger creates a Logger. A nil logger uses slog.Default.
func NewLogger(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log}
}

// Record writes entry at info level, or warn level for failures.
func (l *Logger) Record(ctx context.Context, entry email.LogEntry) error {
	level := slog.LevelInfo
	if entry.Status == email.StatusFailed {
		level = slog.LevelWarn
	}

	l.log.LogAttrs(ctx, level, "email delivery",
		slog.String("id", entry.ID),
		slog.String("recipient", entry.Recipient),
		slog.String("subject", entry.Subject),
		slog.String("status", string(entry.Status)),
		slog.String("message_id", entry.MessageID),
		slog.String("error", entry.ErrorMessage),
		slog.Time("timestamp", entry.Timestamp),
	)
	return nil
}
