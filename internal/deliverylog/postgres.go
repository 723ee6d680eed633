package deliverylog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shineum/ses-notify/internal/email"
)

// Schema creates the delivery log table.
const Schema = `CREATE TABLE IF NOT EXISTS email_delivery_log (
	id            UUID PRIMARY KEY,
	recipient     TEXT NOT NULL,
	subject       TEXT NOT NULL,
	status        TEXT NOT NULL,
	message_id    TEXT,
	error_message TEXT,
	created_at    TIMESTAMPTZ NOT NULL
)`

const insertEntry = `INSERT INTO email_delivery_log
	(id, recipient, subject, status, message_id, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// ErrNotInserted is returned when an insert reports zero affected rows.
var ErrNotInserted = errors.New("delivery log entry not inserted")

// Execer is the subset of pgxpool.Pool the recorder needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres records entries in the email_delivery_log table.
type Postgres struct {
	db Execer
}

// NewPostgres creates a Postgres recorder over db.
func NewPostgres(db Execer) *Postgres {
	return &Postgres{db: db}
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open delivery log database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach delivery log database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create delivery log table: %w", err)
	}
	return nil
}

// Record inserts entry.
func (p *Postgres) Record(ctx context.Context, entry email.LogEntry) error {
	tag, err := p.db.Exec(ctx, insertEntry,
		entry.ID,
		entry.Recipient,
		entry.Subject,
		string(entry.Status),
		nullable(entry.MessageID),
		nullable(entry.ErrorMessage),
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery log entry: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNotInserted
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
