// Package provider defines the interface for email submission transports.
package provider

import (
	"context"

	"github.com/shineum/ses-notify/internal/email"
	"github.com/shineum/ses-notify/internal/sigv4"
)

// Provider submits a signed request and classifies the result.
// Implementations never return an error: every failure becomes a
// Failure outcome, so one recipient cannot abort a batch.
type Provider interface {
	// Send consumes req and performs a single best-effort attempt.
	Send(ctx context.Context, req *sigv4.SignedRequest) email.Outcome

	// Name returns the human-readable name of this provider.
	Name() string
}
