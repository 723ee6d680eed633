package sigv4

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"
)

// ErrReplayed is returned when a signed request is handed out a second time.
var ErrReplayed = errors.New("signed request already consumed")

// SignedRequest is a ready-to-send POST. It may be consumed exactly once; the
// signature is time-boxed and must not be cached or replayed.
type SignedRequest struct {
	URL    string
	Date   time.Time
	Header http.Header
	Body   []byte

	consumed atomic.Bool
}

// NewSignedRequest canonicalizes, signs and assembles a form-encoded POST to
// endpoint. The single instant t is used for both the scope and X-Amz-Date.
func NewSignedRequest(endpoint string, body []byte, creds Credentials, t time.Time) (*SignedRequest, error) {
	target, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse endpoint: %w", err)
	}
	if target.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", endpoint)
	}

	cr := BuildCanonicalRequest(http.MethodPost, target, body, t)
	sig, err := Sign(cr, creds, t)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("Content-Type", ContentType)
	header.Set("Host", cr.Host)
	header.Set("X-Amz-Date", sig.AmzDate)
	header.Set("Authorization", sig.Authorization)

	return &SignedRequest{
		URL:    target.String(),
		Date:   t,
		Header: header,
		Body:   body,
	}, nil
}

// Consume marks the request as sent. It fails on every call after the first.
func (r *SignedRequest) Consume() error {
	if !r.consumed.CompareAndSwap(false, true) {
		return ErrReplayed
	}
	return nil
}
