// Package stdout implements a Provider that prints signed requests instead of
// sending them.
package stdout

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/shineum/ses-notify/internal/email"
	"github.com/shineum/ses-notify/internal/mimemail"
	"github.com/shineum/ses-notify/internal/sigv4"
)

// Provider prints each request in a human-readable format and reports success.
type Provider struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send prints the request. The signature and the full access key id are never
// printed.
func (p *Provider) Send(_ context.Context, req *sigv4.SignedRequest) email.Outcome {
	if err := req.Consume(); err != nil {
		return email.Failed(err.Error(), err)
	}

	var b strings.Builder

	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "POST %s\n", req.URL)
	fmt.Fprintf(&b, "X-Amz-Date: %s\n", req.Header.Get("X-Amz-Date"))
	fmt.Fprintf(&b, "Authorization: %s\n", sigv4.RedactAuthorization(req.Header.Get("Authorization")))

	form, err := url.ParseQuery(string(req.Body))
	if err != nil {
		fmt.Fprintf(&b, "Body: %s\n", formatSize(len(req.Body)))
	} else {
		fmt.Fprintf(&b, "Action: %s\n", form.Get("Action"))
		if to := form.Get("Destination.ToAddresses.member.1"); to != "" {
			fmt.Fprintf(&b, "To: %s\n", to)
			fmt.Fprintf(&b, "Subject: %s\n", form.Get("Message.Subject.Data"))
		}
		if raw := form.Get("RawMessage.Data"); raw != "" {
			fmt.Fprintf(&b, "RawMessage: %s\n", formatSize(len(raw)))
			writeRawSummary(&b, raw)
		}
	}

	b.WriteString("========================================\n")

	// Write errors are ignored: a dry run has nothing to deliver.
	_, _ = fmt.Fprint(p.writer, b.String())

	return email.Succeeded("stdout-" + uuid.NewString())
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

// writeRawSummary decodes a RawMessage.Data value and prints its envelope.
// Undecodable documents are summarized by size only.
func writeRawSummary(b *strings.Builder, data string) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return
	}
	msg, err := mimemail.Parse(raw)
	if err != nil {
		return
	}

	fmt.Fprintf(b, "To: %s\n", msg.To)
	fmt.Fprintf(b, "Subject: %s\n", msg.Subject)
	if att := msg.Attachment; att != nil {
		fmt.Fprintf(b, "Attachment: %s (%s, %s)\n", att.Filename, att.ContentType, formatSize(len(att.Content)))
	}
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
