// Package sigv4 implements AWS Signature Version 4 request signing for
// form-encoded POST requests, without depending on a vendor SDK signer.
package sigv4

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ErrIncompleteCredentials is returned when any credential field is missing.
var ErrIncompleteCredentials = errors.New("incomplete signing credentials")

// ErrTemporaryCredentials is returned when a credential source yields a
// session token. Requests are signed with a fixed header set that does not
// carry X-Amz-Security-Token.
var ErrTemporaryCredentials = errors.New("temporary credentials with a session token are not supported")

// Credentials is the immutable key material and scope used for signing.
// Build it once at startup and pass it by value.
type Credentials struct {
	AccessKeyID string
	SecretKey   string
	Region      string
	Service     string
}

// Validate returns ErrIncompleteCredentials naming every empty field.
func (c Credentials) Validate() error {
	var missing []string
	if c.AccessKeyID == "" {
		missing = append(missing, "access key id")
	}
	if c.SecretKey == "" {
		missing = append(missing, "secret key")
	}
	if c.Region == "" {
		missing = append(missing, "region")
	}
	if c.Service == "" {
		missing = append(missing, "service")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// Complete reports whether every field is populated.
func (c Credentials) Complete() bool {
	return c.Validate() == nil
}

// String never includes the secret key.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{AccessKeyID:%s Region:%s Service:%s}", redact(c.AccessKeyID), c.Region, c.Service)
}

// LogValue implements slog.LogValuer so credentials can be logged safely.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("access_key_id", redact(c.AccessKeyID)),
		slog.String("region", c.Region),
		slog.String("service", c.Service),
	)
}

// FromProvider resolves credentials from an AWS credentials provider, such as
// a static provider or the SDK default chain.
func FromProvider(ctx context.Context, p aws.CredentialsProvider, region, service string) (Credentials, error) {
	if p == nil {
		return Credentials{}, fmt.Errorf("%w: no credentials provider", ErrIncompleteCredentials)
	}

	v, err := p.Retrieve(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to retrieve credentials: %w", err)
	}
	if v.SessionToken != "" {
		return Credentials{}, ErrTemporaryCredentials
	}

	creds := Credentials{
		AccessKeyID: v.AccessKeyID,
		SecretKey:   v.SecretAccessKey,
		Region:      region,
		Service:     service,
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// RedactAuthorization masks the access key id and drops the signature of an
// Authorization header value so it can be printed.
func RedactAuthorization(auth string) string {
	if i := strings.Index(auth, "Signature="); i >= 0 {
		auth = auth[:i] + "Signature=<redacted>"
	}

	const marker = "Credential="
	i := strings.Index(auth, marker)
	if i < 0 {
		return auth
	}
	start := i + len(marker)
	end := strings.IndexByte(auth[start:], '/')
	if end < 0 {
		return auth
	}
	return auth[:start] + redact(auth[start:start+end]) + auth[start+end:]
}

// redact keeps the last four characters of an access key id.
func redact(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
