// Package delivery runs the per-recipient send pipeline: compose, sign,
// submit, and collect one outcome per recipient.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/shineum/ses-notify/internal/email"
	"github.com/shineum/ses-notify/internal/mimemail"
	"github.com/shineum/ses-notify/internal/provider"
	"github.com/shineum/ses-notify/internal/provider/ses"
	"github.com/shineum/ses-notify/internal/sigv4"
)

// ErrNotConfigured is the failure reported for every recipient when the
// credentials or sender are missing. No network call is made.
var ErrNotConfigured = errors.New("email service not configured")

// SendMode selects the SES action used per recipient.
type SendMode string

const (
	// ModeAuto sends raw MIME when an attachment is present, simple otherwise.
	ModeAuto SendMode = "auto"
	// ModeRaw always sends a composed MIME document via SendRawEmail.
	ModeRaw SendMode = "raw"
	// ModeSimple always uses SendEmail and drops any attachment.
	ModeSimple SendMode = "simple"
)

// ParseSendMode accepts auto, raw or simple; empty means auto.
func ParseSendMode(s string) (SendMode, error) {
	switch SendMode(s) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeRaw, ModeSimple:
		return SendMode(s), nil
	default:
		return "", fmt.Errorf("unknown send mode %q", s)
	}
}

// Config holds the non-secret delivery settings.
type Config struct {
	// Sender is the From address on every message.
	Sender string
	// Endpoint overrides the regional SES endpoint.
	Endpoint string
	Mode     SendMode
}

// Request is one notification fanned out to several recipients.
type Request struct {
	Recipients []string
	Subject    string
	HTMLBody   string
	Attachment *email.Attachment
}

// Orchestrator delivers requests one recipient at a time.
type Orchestrator struct {
	creds    sigv4.Credentials
	provider provider.Provider
	builder  mimemail.Builder
	cfg      Config
	now      func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces time.Now for signing timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithBuilder replaces the MIME builder.
func WithBuilder(b mimemail.Builder) Option {
	return func(o *Orchestrator) { o.builder = b }
}

// New creates an Orchestrator. creds are validated per call, not here, so a
// process with missing configuration still starts and reports failures.
func New(creds sigv4.Credentials, p provider.Provider, cfg Config, opts ...Option) *Orchestrator {
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	if cfg.Endpoint == "" && creds.Region != "" {
		cfg.Endpoint = ses.Endpoint(creds.Region)
	}

	o := &Orchestrator{
		creds:    creds,
		provider: p,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Configured reports whether sends can be attempted at all.
func (o *Orchestrator) Configured() error {
	if err := o.creds.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrNotConfigured, err)
	}
	if o.cfg.Sender == "" {
		return fmt.Errorf("%w: missing sender", ErrNotConfigured)
	}
	return nil
}

// DeliverAll sends req to each recipient in order and returns one outcome
// per recipient in the same order. A failure never stops the loop.
func (o *Orchestrator) DeliverAll(ctx context.Context, req Request) []email.Outcome {
	outcomes := make([]email.Outcome, 0, len(req.Recipients))

	if err := o.Configured(); err != nil {
		slog.Error("email delivery skipped", "error", err, "recipients", len(req.Recipients))
		for _, rcpt := range req.Recipients {
			outcomes = append(outcomes, email.Failed(ErrNotConfigured.Error(), err).For(rcpt))
		}
		return outcomes
	}

	for _, rcpt := range req.Recipients {
		outcome := o.deliverOne(ctx, rcpt, req).For(rcpt)
		if outcome.OK() {
			slog.Info("email sent",
				"recipient", rcpt,
				"message_id", outcome.MessageID,
				"provider", o.provider.Name(),
			)
		} else {
			slog.Warn("email failed",
				"recipient", rcpt,
				"error", outcome.ErrorMessage,
				"provider", o.provider.Name(),
			)
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// deliverOne builds a fresh message and signed request for one recipient.
// The timestamp is captured right before signing and reused for the header.
func (o *Orchestrator) deliverOne(ctx context.Context, rcpt string, req Request) email.Outcome {
	if _, err := mail.ParseAddress(rcpt); err != nil {
		return email.Failed(fmt.Sprintf("invalid recipient: %v", err), err)
	}

	body, err := o.body(email.Message{
		From:       o.cfg.Sender,
		To:         rcpt,
		Subject:    req.Subject,
		HTMLBody:   req.HTMLBody,
		Attachment: req.Attachment,
	})
	if err != nil {
		return email.Failed(err.Error(), err)
	}

	signed, err := sigv4.NewSignedRequest(o.cfg.Endpoint, body, o.creds, o.now())
	if err != nil {
		return email.Failed(err.Error(), err)
	}

	return o.provider.Send(ctx, signed)
}

// body encodes the SES form for msg according to the send mode.
func (o *Orchestrator) body(msg email.Message) ([]byte, error) {
	hasAttachment := msg.Attachment != nil && len(msg.Attachment.Content) > 0

	raw := o.cfg.Mode == ModeRaw || (o.cfg.Mode == ModeAuto && hasAttachment)
	if !raw {
		if hasAttachment {
			slog.Warn("attachment dropped in simple send mode", "recipient", msg.To)
		}
		form := ses.SimpleEmailForm(msg.From, []string{msg.To}, msg.Subject, msg.HTMLBody)
		return []byte(form.Encode()), nil
	}

	composed, err := o.builder.Build(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to build MIME message: %w", err)
	}
	return []byte(ses.RawEmailForm(composed.Encode()).Encode()), nil
}
