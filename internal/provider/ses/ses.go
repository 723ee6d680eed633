// Package ses implements a Provider that submits SigV4-signed requests to the
// Amazon SES query API over plain HTTPS.
package ses

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/shineum/ses-notify/internal/email"
	"github.com/shineum/ses-notify/internal/sigv4"
)

// Service is the signing service name for SES.
const Service = "ses"

// UnknownError is the failure message used when a response cannot be parsed.
const UnknownError = "unknown error"

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 1 << 20

var (
	// ErrTransport marks network, TLS and connection failures.
	ErrTransport = errors.New("ses transport error")

	// ErrProtocol marks a non-2xx response with a parseable fault.
	ErrProtocol = errors.New("ses rejected request")

	// ErrMalformedResponse marks a response whose body is not the expected XML.
	ErrMalformedResponse = errors.New("ses response malformed")
)

// Endpoint returns the regional SES query endpoint.
func Endpoint(region string) string {
	return fmt.Sprintf("https://email.%s.amazonaws.com/", region)
}

// SESProvider posts signed requests to SES.
type SESProvider struct {
	httpClient *http.Client
}

// New creates a SESProvider. A nil client uses a client without a timeout,
// relying on the platform socket defaults.
func New(client *http.Client) *SESProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &SESProvider{httpClient: client}
}

// Name returns the provider name.
func (s *SESProvider) Name() string {
	return "ses"
}

// Send performs one POST and classifies the response. It always yields an
// outcome and never retries.
func (s *SESProvider) Send(ctx context.Context, req *sigv4.SignedRequest) email.Outcome {
	if err := req.Consume(); err != nil {
		return email.Failed(err.Error(), err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return email.Failed(err.Error(), fmt.Errorf("%w: %w", ErrTransport, err))
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	httpReq.Host = req.Header.Get("Host")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		slog.Warn("SES request failed", "error", err)
		return email.Failed(err.Error(), fmt.Errorf("%w: %w", ErrTransport, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		slog.Warn("failed to read SES response", "status", resp.StatusCode, "error", err)
		return email.Failed(err.Error(), fmt.Errorf("%w: %w", ErrTransport, err))
	}

	return classify(resp.StatusCode, body)
}

// classify maps a status code and body to an outcome.
func classify(status int, body []byte) email.Outcome {
	if status >= 200 && status < 300 {
		var ok sendResponse
		if err := xml.Unmarshal(body, &ok); err != nil || ok.messageID() == "" {
			slog.Warn("SES success response without MessageId", "status", status)
			return email.Failed(UnknownError, ErrMalformedResponse)
		}
		slog.Debug("SES accepted message",
			"message_id", ok.messageID(),
			"request_id", ok.RequestID,
		)
		return email.Succeeded(ok.messageID())
	}

	var fault errorResponse
	if err := xml.Unmarshal(body, &fault); err != nil || fault.Error.Message == "" {
		slog.Warn("SES error response not parseable", "status", status)
		return email.Failed(UnknownError, fmt.Errorf("%w: HTTP %d", ErrMalformedResponse, status))
	}

	slog.Warn("SES rejected message",
		"status", status,
		"code", fault.Error.Code,
		"message", fault.Error.Message,
		"request_id", fault.RequestID,
	)
	return email.Failed(fault.Error.Message,
		fmt.Errorf("%w: HTTP %d %s: %s", ErrProtocol, status, fault.Error.Code, fault.Error.Message))
}
